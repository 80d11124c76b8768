package content

// material is the implementation of the Material interface.
type material struct {
	id            uint64
	name          string
	albedoColor   [4]float32
	emissiveColor [3]float32
	metallic      float32
	roughness     float32
	workflow      pbrWorkflow
	blendMode     BlendMode
	alphaCutoff   float32
	textures      [textureClassCount]*TextureInfo
}

// pbrWorkflow records which PBR parameterization, if any, the material uses.
type pbrWorkflow int

const (
	pbrWorkflowNone pbrWorkflow = iota
	pbrWorkflowMetalRough
	pbrWorkflowSpecGloss
)

// Material defines the read-only view of a scene material consumed by the bindless tables.
//
// Surface properties are set at load time by the content system. Texture lookups return nil when the
// material has no texture of the requested class.
type Material interface {
	// ID retrieves the content-assigned material identity.
	//
	// Returns:
	//   - uint64: the material ID
	ID() uint64

	// Name retrieves the material identifier used in logs.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// AlbedoColor retrieves the base RGBA color factor of the material.
	//
	// Returns:
	//   - [4]float32: the albedo factor as RGBA values
	AlbedoColor() [4]float32

	// EmissiveColor retrieves the RGB emission factor of the material.
	//
	// Returns:
	//   - [3]float32: the emission factor
	EmissiveColor() [3]float32

	// PBRInfo retrieves the PBR scalar factors packed as (metalness, roughness, 0, 0).
	//
	// Returns:
	//   - [4]float32: the packed PBR factors
	PBRInfo() [4]float32

	// HasPBRInfo reports whether the material uses a PBR workflow at all.
	//
	// Returns:
	//   - bool: true for metal-rough or spec-gloss materials
	HasPBRInfo() bool

	// HasPBRMetalRough reports whether the material uses the metal-rough workflow.
	//
	// Returns:
	//   - bool: true for metal-rough materials
	HasPBRMetalRough() bool

	// HasPBRSpecGloss reports whether the material uses the spec-gloss workflow.
	//
	// Returns:
	//   - bool: true for spec-gloss materials
	HasPBRSpecGloss() bool

	// BlendMode retrieves the alpha blend mode.
	//
	// Returns:
	//   - BlendMode: the blend mode
	BlendMode() BlendMode

	// AlphaCutoff retrieves the alpha test threshold used by masked materials.
	//
	// Returns:
	//   - float32: the alpha cutoff
	AlphaCutoff() float32

	// TextureInfo retrieves the texture of the given class together with its sampler description.
	//
	// Parameters:
	//   - class: the texture class to look up
	//
	// Returns:
	//   - *TextureInfo: the texture info, or nil if the material has no texture of that class
	TextureInfo(class TextureClass) *TextureInfo
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - id: the content-assigned identity of the material
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(id uint64, options ...MaterialBuilderOption) Material {
	m := &material{
		id:          id,
		albedoColor: [4]float32{1, 1, 1, 1},
		metallic:    0.0,
		roughness:   1.0,
		alphaCutoff: 0.5,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) AlbedoColor() [4]float32 {
	return m.albedoColor
}

func (m *material) EmissiveColor() [3]float32 {
	return m.emissiveColor
}

func (m *material) PBRInfo() [4]float32 {
	return [4]float32{m.metallic, m.roughness, 0, 0}
}

func (m *material) HasPBRInfo() bool {
	return m.workflow != pbrWorkflowNone
}

func (m *material) HasPBRMetalRough() bool {
	return m.workflow == pbrWorkflowMetalRough
}

func (m *material) HasPBRSpecGloss() bool {
	return m.workflow == pbrWorkflowSpecGloss
}

func (m *material) BlendMode() BlendMode {
	return m.blendMode
}

func (m *material) AlphaCutoff() float32 {
	return m.alphaCutoff
}

func (m *material) TextureInfo(class TextureClass) *TextureInfo {
	if class < 0 || class >= textureClassCount {
		return nil
	}
	return m.textures[class]
}
