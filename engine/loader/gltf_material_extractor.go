package loader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/content"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser   gltfParser
	ids      *identities
	textures map[int]content.Texture
	fallback content.Material
}

// gltfMaterialExtractor converts glTF materials into content materials. Textures are handed out
// once per image so every material sharing an image shares one texture identity.
type gltfMaterialExtractor interface {
	// ExtractMaterial converts a single material by index.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - content.Material: the material with a freshly allocated ID
	//   - error: error if the material or one of its textures is malformed
	ExtractMaterial(materialIndex int) (content.Material, error)

	// ExtractAllMaterials converts every material in document order.
	//
	// Returns:
	//   - []content.Material: the materials, index-aligned with the document
	//   - error: error if any material fails
	ExtractAllMaterials() ([]content.Material, error)

	// DefaultMaterial returns the glTF default material used by primitives without one. It is
	// created on first use and is the same value on every call.
	//
	// Returns:
	//   - content.Material: the default material
	DefaultMaterial() content.Material
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - ids: the loader's identity allocator
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, ids *identities) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser, ids: ids, textures: make(map[int]content.Texture)}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (content.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]
	name := common.Coalesce(mat.Name, fmt.Sprintf("material%d", materialIndex))
	opts := []content.MaterialBuilderOption{content.WithName(name)}

	texture := func(class content.TextureClass, info *gltfTextureInfo) error {
		if info == nil {
			return nil
		}
		tex, sampler, err := e.loadTexture(info.Index)
		if err != nil {
			return fmt.Errorf("material %q: %s texture: %w", name, class, err)
		}
		opts = append(opts, content.WithTexture(class, tex, sampler))
		return nil
	}

	if mat.Extensions != nil && mat.Extensions.SpecularGlossiness != nil {
		sg := mat.Extensions.SpecularGlossiness
		albedo := [4]float32{1, 1, 1, 1}
		if sg.DiffuseFactor != nil {
			albedo = *sg.DiffuseFactor
		}
		glossiness := float32(1)
		if sg.GlossinessFactor != nil {
			glossiness = *sg.GlossinessFactor
		}
		opts = append(opts, content.WithAlbedoColor(albedo), content.WithSpecGloss(0, 1-glossiness))
		if err := texture(content.TextureClassAlbedo, sg.DiffuseTexture); err != nil {
			return nil, err
		}
		if err := texture(content.TextureClassSpecGloss, sg.SpecularGlossinessTexture); err != nil {
			return nil, err
		}
	} else {
		albedo := [4]float32{1, 1, 1, 1}
		metallic, roughness := float32(1), float32(1)
		if pbr := mat.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				albedo = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				roughness = *pbr.RoughnessFactor
			}
			if err := texture(content.TextureClassAlbedo, pbr.BaseColorTexture); err != nil {
				return nil, err
			}
			if err := texture(content.TextureClassMetalRough, pbr.MetallicRoughnessTexture); err != nil {
				return nil, err
			}
		}
		opts = append(opts, content.WithAlbedoColor(albedo), content.WithMetalRough(metallic, roughness))
	}

	if err := texture(content.TextureClassNormal, mat.NormalTexture); err != nil {
		return nil, err
	}
	if err := texture(content.TextureClassEmissive, mat.EmissiveTexture); err != nil {
		return nil, err
	}
	if mat.EmissiveFactor != nil {
		opts = append(opts, content.WithEmissiveColor(*mat.EmissiveFactor))
	}

	cutoff := float32(0.5)
	if mat.AlphaCutoff != nil {
		cutoff = *mat.AlphaCutoff
	}
	switch strings.ToUpper(mat.AlphaMode) {
	case gltfAlphaModeMask:
		opts = append(opts, content.WithBlendMode(content.BlendModeMask, cutoff))
	case gltfAlphaModeBlend:
		opts = append(opts, content.WithBlendMode(content.BlendModeBlend, cutoff))
	}

	return content.NewMaterial(e.ids.next(), opts...), nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]content.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	materials := make([]content.Material, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = mat
	}
	return materials, nil
}

func (e *gltfMaterialExtractorImpl) DefaultMaterial() content.Material {
	if e.fallback == nil {
		e.fallback = content.NewMaterial(e.ids.next(),
			content.WithName("default"),
			content.WithMetalRough(1, 1),
		)
	}
	return e.fallback
}

// loadTexture resolves a glTF texture index into a content texture and its sampler.
// The texture identity is keyed by the image: a file image by its resolved path, an embedded image
// by the document path and image index.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int) (content.Texture, common.SamplerDesc, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, common.SamplerDesc{}, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil || *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return nil, common.SamplerDesc{}, fmt.Errorf("texture %d has no valid image source", textureIndex)
	}

	sampler := common.DefaultSamplerDesc()
	if tex.Sampler != nil {
		if *tex.Sampler < 0 || *tex.Sampler >= len(doc.Samplers) {
			return nil, common.SamplerDesc{}, fmt.Errorf("texture %d: sampler %d out of range", textureIndex, *tex.Sampler)
		}
		sampler = gltfSamplerDesc(&doc.Samplers[*tex.Sampler])
	}

	if t, ok := e.textures[*tex.Source]; ok {
		return t, sampler, nil
	}

	img := &doc.Images[*tex.Source]
	var key string
	switch {
	case img.URI != "" && !strings.HasPrefix(img.URI, "data:"):
		key = e.ids.files.Resolve(e.parser.Path(), img.URI)
	case img.URI != "" || img.BufferView != nil:
		key = fmt.Sprintf("%s#image%d", e.parser.Path(), *tex.Source)
	default:
		return nil, common.SamplerDesc{}, fmt.Errorf("image %d has neither uri nor bufferView", *tex.Source)
	}

	name := common.Coalesce(img.Name, tex.Name, img.URI)
	if strings.HasPrefix(name, "data:") {
		name = key
	}
	t := content.NewTexture(e.ids.texture(key), name)
	e.textures[*tex.Source] = t
	return t, sampler, nil
}

// gltfSamplerDesc converts a glTF sampler into a sampler description.
// Unset fields fall back to the glTF defaults (linear filtering, repeat wrapping).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - common.SamplerDesc: the converted description
func gltfSamplerDesc(s *gltfSampler) common.SamplerDesc {
	result := common.DefaultSamplerDesc()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltfFilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinear, gltfFilterLinearMipmapNearest, gltfFilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest, gltfFilterNearest, gltfFilterLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
