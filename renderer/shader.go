package renderer

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// shaderCode holds the compiled SPIR-V blobs for the two shader stages,
// loaded fully into memory before pipeline creation.
type shaderCode struct {
	vert []byte
	frag []byte
}

// loadShaderCode reads both stages from dir. The stages are independent
// files, so they load concurrently.
func loadShaderCode(dir string) (*shaderCode, error) {
	code := &shaderCode{}

	var group errgroup.Group
	group.Go(func() error {
		var err error
		code.vert, err = readSPIRV(filepath.Join(dir, "triangle.vert.spv"))
		return err
	})
	group.Go(func() error {
		var err error
		code.frag, err = readSPIRV(filepath.Join(dir, "triangle.frag.spv"))
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return code, nil
}

func readSPIRV(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading shader bytecode")
	}
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, errors.Newf("shader %s is not valid SPIR-V: length %d is not a positive multiple of 4", path, len(blob))
	}
	return blob, nil
}

// bytesToBytecode repacks a SPIR-V blob into the 32-bit words the shader
// module API expects, little-endian.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
