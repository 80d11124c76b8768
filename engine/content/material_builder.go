package content

import (
	"github.com/Carmen-Shannon/oxy-ivy/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithAlbedoColor is an option builder that sets the base RGBA color factor of the material.
//
// Parameters:
//   - color: the albedo color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo color option to a material
func WithAlbedoColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.albedoColor = color
	}
}

// WithEmissiveColor is an option builder that sets the RGB emission factor of the material.
//
// Parameters:
//   - color: the emission color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive color option to a material
func WithEmissiveColor(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissiveColor = color
	}
}

// WithMetalRough is an option builder that switches the material to the metal-rough PBR workflow.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metal-rough option to a material
func WithMetalRough(metallic, roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.workflow = pbrWorkflowMetalRough
		m.metallic = metallic
		m.roughness = roughness
	}
}

// WithSpecGloss is an option builder that switches the material to the spec-gloss PBR workflow.
//
// Parameters:
//   - metallic: the metallic factor used when the workflow is collapsed into ARM factors
//   - roughness: the roughness factor, i.e. 1 - glossiness
//
// Returns:
//   - MaterialBuilderOption: a function that applies the spec-gloss option to a material
func WithSpecGloss(metallic, roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.workflow = pbrWorkflowSpecGloss
		m.metallic = metallic
		m.roughness = roughness
	}
}

// WithBlendMode is an option builder that sets the alpha blend mode and cutoff.
//
// Parameters:
//   - mode: the blend mode
//   - alphaCutoff: the alpha test threshold
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend option to a material
func WithBlendMode(mode BlendMode, alphaCutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.blendMode = mode
		m.alphaCutoff = alphaCutoff
	}
}

// WithTexture is an option builder that assigns a texture and its sampler description to a texture class.
//
// Parameters:
//   - class: the texture class to populate
//   - tex: the texture
//   - sampler: the sampler the texture is read through
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(class TextureClass, tex Texture, sampler common.SamplerDesc) MaterialBuilderOption {
	return func(m *material) {
		if class < 0 || class >= textureClassCount || tex == nil {
			return
		}
		m.textures[class] = &TextureInfo{Texture: tex, Sampler: sampler}
	}
}
