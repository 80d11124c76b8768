package bindless

import (
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// boundTexture is one texture table slot. A slot with count 0 is a tombstone free for reuse.
type boundTexture struct {
	texture content.Texture
	count   int
}

// textureTable is the refcounted texture slot table. Live identities map to their slot; freed
// slots are kept sorted so the lowest is reused first.
type textureTable struct {
	slots []boundTexture
	index map[uint64]int32
	free  []int32
}

func newTextureTable() textureTable {
	return textureTable{index: make(map[uint64]int32)}
}

// add references tex and returns its slot.
func (t *textureTable) add(tex content.Texture) (int32, error) {
	if i, ok := t.index[tex.ID()]; ok {
		t.slots[i].count++
		return i, nil
	}
	var i int32
	if len(t.free) > 0 {
		i = t.free[0]
		t.free = t.free[1:]
	} else {
		if len(t.slots) >= MaxTextures {
			return -1, &CapacityError{Table: "texture", Count: len(t.slots) + 1, Limit: MaxTextures}
		}
		i = int32(len(t.slots))
		t.slots = append(t.slots, boundTexture{})
	}
	t.slots[i] = boundTexture{texture: tex, count: 1}
	t.index[tex.ID()] = i
	return i, nil
}

// remove drops one reference from slot i. Out of range and already free slots are ignored.
func (t *textureTable) remove(i int32) {
	if i < 0 || int(i) >= len(t.slots) || t.slots[i].count == 0 {
		return
	}
	t.slots[i].count--
	if t.slots[i].count > 0 {
		return
	}
	delete(t.index, t.slots[i].texture.ID())
	t.slots[i].texture = nil
	pos, _ := slices.BinarySearch(t.free, i)
	t.free = slices.Insert(t.free, pos, i)
}

func (t *textureTable) clone() textureTable {
	return textureTable{
		slots: slices.Clone(t.slots),
		index: maps.Clone(t.index),
		free:  slices.Clone(t.free),
	}
}

// samplerTable is the append-only sampler table deduplicated by descriptor equality.
type samplerTable struct {
	samplers []renderer.Sampler
	index    map[common.SamplerDesc]int32
}

func newSamplerTable() samplerTable {
	return samplerTable{index: make(map[common.SamplerDesc]int32)}
}

// resolve returns the slot of an equal sampler, creating one when none is registered.
func (t *samplerTable) resolve(device renderer.Device, desc common.SamplerDesc) (int32, error) {
	if i, ok := t.index[desc]; ok {
		return i, nil
	}
	if len(t.samplers) >= MaxSamplers {
		return -1, &CapacityError{Table: "sampler", Count: len(t.samplers) + 1, Limit: MaxSamplers}
	}
	s, err := device.CreateSampler(desc)
	if err != nil {
		return -1, err
	}
	i := int32(len(t.samplers))
	t.samplers = append(t.samplers, s)
	t.index[desc] = i
	return i, nil
}

// truncate releases and forgets every sampler at or after n.
func (t *samplerTable) truncate(n int) {
	for _, s := range t.samplers[n:] {
		delete(t.index, s.Desc())
		s.Release()
	}
	t.samplers = t.samplers[:n]
}

// bufferTable is an append-only geometry buffer table deduplicated by buffer identity.
type bufferTable struct {
	name    string
	buffers []content.Buffer
	index   map[uint64]int32
}

func newBufferTable(name string) bufferTable {
	return bufferTable{name: name, index: make(map[uint64]int32)}
}

// resolve returns the slot of buf, appending it on first sight.
func (t *bufferTable) resolve(buf content.Buffer) (int32, error) {
	if i, ok := t.index[buf.ID()]; ok {
		return i, nil
	}
	if len(t.buffers) >= MaxBuffers {
		return -1, &CapacityError{Table: t.name, Count: len(t.buffers) + 1, Limit: MaxBuffers}
	}
	i := int32(len(t.buffers))
	t.buffers = append(t.buffers, buf)
	t.index[buf.ID()] = i
	return i, nil
}

// truncate forgets every buffer at or after n.
func (t *bufferTable) truncate(n int) {
	for _, b := range t.buffers[n:] {
		delete(t.index, b.ID())
	}
	t.buffers = t.buffers[:n]
}
