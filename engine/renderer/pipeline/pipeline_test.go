package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphicsStateDefaults(t *testing.T) {
	s := NewGraphicsState()
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, s.Topology)
	assert.Equal(t, wgpu.TextureFormatDepth32Float, s.DepthFormat)
	assert.Equal(t, wgpu.FrontFaceCCW, s.FrontFace)
	assert.Empty(t, s.ColorFormats)
	require.NoError(t, s.Validate())
}

func TestGraphicsStateRasterizer(t *testing.T) {
	s := NewGraphicsState(WithFrontFace(wgpu.FrontFaceCW), WithFillMode(FillModeWireframe))
	r := s.Rasterizer(wgpu.CullModeBack)
	assert.Equal(t, RasterizerState{CullMode: wgpu.CullModeBack, FrontFace: wgpu.FrontFaceCW, FillMode: FillModeWireframe}, r)
	assert.NotEqual(t, r, s.Rasterizer(wgpu.CullModeNone))
}

func TestGraphicsStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []GraphicsStateOption
		wantErr bool
	}{
		{
			name: "four gbuffer targets",
			opts: []GraphicsStateOption{WithColorFormats(
				wgpu.TextureFormatRGBA8Unorm,
				wgpu.TextureFormatRGBA16Float,
				wgpu.TextureFormatRGBA8Unorm,
				wgpu.TextureFormatRG16Float,
			)},
		},
		{
			name: "too many targets",
			opts: []GraphicsStateOption{WithColorFormats(
				wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm,
				wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm,
				wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm,
			)},
			wantErr: true,
		},
		{
			name:    "undefined depth",
			opts:    []GraphicsStateOption{WithDepthFormat(wgpu.TextureFormatUndefined)},
			wantErr: true,
		},
		{
			name:    "undefined color",
			opts:    []GraphicsStateOption{WithColorFormats(wgpu.TextureFormatUndefined)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGraphicsState(tt.opts...).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
