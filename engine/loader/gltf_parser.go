package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// fileSource reads a document and the external buffers it references.
type fileSource interface {
	ReadFile(name string) ([]byte, error)
	// Resolve joins a URI relative to the directory of the document at base.
	Resolve(base, uri string) string
}

// osFiles reads from the operating system's file system.
type osFiles struct{}

func (osFiles) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (osFiles) Resolve(base, uri string) string {
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(uri))
}

// fsFiles reads from an fs.FS, whose names are always slash separated.
type fsFiles struct {
	fsys fs.FS
}

func (f fsFiles) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(f.fsys, name)
}

func (f fsFiles) Resolve(base, uri string) string {
	return path.Join(path.Dir(base), uri)
}

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	files          fileSource
	docPath        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads glTF/GLB documents and validates the accessors the importer reads.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF or GLB file.
	// The binary format is detected by the .glb extension or the GLB magic number.
	//
	// Parameters:
	//   - name: the file name within the parser's file source
	//
	// Returns:
	//   - error: error if reading or parsing fails
	Parse(name string) error

	// ParseReader parses a document from a reader. External buffer URIs resolve against name.
	//
	// Parameters:
	//   - name: the document name used to resolve relative URIs
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(name string, r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// Path returns the name the document was parsed from.
	Path() string

	// AccessorCount validates that an accessor's elements lie inside its buffer and returns the
	// element count.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - int: the number of elements
	//   - error: error if the accessor is out of range, sparse-only or overruns its buffer
	AccessorCount(accessorIndex int) (int, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a parser reading through files.
func newGLTFParser(files fileSource) gltfParser {
	return &gltfParserImpl{files: files}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Path() string {
	return p.docPath
}

func (p *gltfParserImpl) Parse(name string) error {
	data, err := p.files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	p.docPath = name

	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	if ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(name string, r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	p.docPath = name

	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

// parseGLTF parses a glTF JSON file.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	return p.decodeDocument(data)
}

// parseGLB parses a GLB binary file.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("chunk of %d bytes overruns the file", chunkHeader.ChunkLength)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = chunkData
		}
	}

	if jsonData == nil {
		return errMissingJSONChunk
	}
	return p.decodeDocument(jsonData)
}

// decodeDocument unmarshals the JSON chunk, checks the version and loads every buffer.
func (p *gltfParserImpl) decodeDocument(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	for _, ext := range doc.ExtensionsRequired {
		if ext != "KHR_materials_pbrSpecularGlossiness" {
			return fmt.Errorf("required extension %q is not supported", ext)
		}
	}

	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// loadBuffers loads all buffer data (from URIs, embedded data, or GLB binary chunk).
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		if buf.URI == "" {
			if i == 0 && p.glbBinaryChunk != nil {
				buf.Data = p.glbBinaryChunk
				if len(buf.Data) < buf.ByteLength {
					return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
				}
				continue
			}
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		}

		data, err := p.loadBufferURI(buf.URI)
		if err != nil {
			return fmt.Errorf("buffer %d: %w", i, err)
		}
		buf.Data = data

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}

	return nil
}

// loadBufferURI loads buffer data from a data: URI or a file relative to the document.
func (p *gltfParserImpl) loadBufferURI(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	data, err := p.files.ReadFile(p.files.Resolve(p.docPath, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// decodeDataURI decodes a base64 data URI of the form data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, errInvalidBufferURI
	}

	header := uri[len("data:"):commaIdx]
	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func (p *gltfParserImpl) AccessorCount(accessorIndex int) (int, error) {
	if p.document == nil {
		return 0, errors.New("no document loaded")
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return 0, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}

	acc := &p.document.Accessors[accessorIndex]
	if acc.BufferView == nil {
		return 0, fmt.Errorf("accessor %d has no bufferView", accessorIndex)
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(p.document.BufferViews) {
		return 0, fmt.Errorf("accessor %d: bufferView %d out of range", accessorIndex, *acc.BufferView)
	}

	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return 0, fmt.Errorf("accessor %d: buffer %d out of range", accessorIndex, bv.Buffer)
	}
	buf := &p.document.Buffers[bv.Buffer]

	elementSize := gltfComponentTypeSize(acc.ComponentType) * gltfAccessorTypeComponentCount(acc.Type)
	if elementSize == 0 {
		return 0, fmt.Errorf("accessor %d: unknown layout %s/%d", accessorIndex, acc.Type, acc.ComponentType)
	}
	if acc.Count == 0 {
		return 0, nil
	}

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	end := bv.ByteOffset + acc.ByteOffset + (acc.Count-1)*stride + elementSize
	if acc.ByteOffset+(acc.Count-1)*stride+elementSize > bv.ByteLength || end > len(buf.Data) {
		return 0, fmt.Errorf("accessor %d: %w", accessorIndex, errBufferSizeMismatch)
	}
	return acc.Count, nil
}

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
