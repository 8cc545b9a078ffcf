package renderer

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBytesToBytecode(t *testing.T) {
	blob := []byte{
		0x03, 0x02, 0x23, 0x07, // SPIR-V magic, little endian
		0x01, 0x00, 0x00, 0x00,
		0xff, 0x00, 0xaa, 0x55,
	}

	got := bytesToBytecode(blob)
	want := []uint32{0x07230203, 0x00000001, 0x55aa00ff}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bytesToBytecode = %#v, want %#v", got, want)
	}
}

func writeShaderFile(t *testing.T, dir, name string, blob []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), blob, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadShaderCode(t *testing.T) {
	vert := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frag := []byte{9, 10, 11, 12}

	dir := t.TempDir()
	writeShaderFile(t, dir, "triangle.vert.spv", vert)
	writeShaderFile(t, dir, "triangle.frag.spv", frag)

	code, err := loadShaderCode(dir)
	if err != nil {
		t.Fatalf("loadShaderCode: %v", err)
	}
	if !reflect.DeepEqual(code.vert, vert) {
		t.Errorf("vert = %v, want %v", code.vert, vert)
	}
	if !reflect.DeepEqual(code.frag, frag) {
		t.Errorf("frag = %v, want %v", code.frag, frag)
	}
}

func TestLoadShaderCodeMissingStage(t *testing.T) {
	dir := t.TempDir()
	writeShaderFile(t, dir, "triangle.vert.spv", []byte{1, 2, 3, 4})

	if _, err := loadShaderCode(dir); err == nil {
		t.Fatal("loadShaderCode succeeded with a missing fragment stage")
	}
}

func TestReadSPIRVRejectsMisalignedBlobs(t *testing.T) {
	dir := t.TempDir()
	writeShaderFile(t, dir, "bad.spv", []byte{1, 2, 3})
	writeShaderFile(t, dir, "empty.spv", nil)

	if _, err := readSPIRV(filepath.Join(dir, "bad.spv")); err == nil {
		t.Error("readSPIRV accepted a blob whose length is not a multiple of 4")
	}
	if _, err := readSPIRV(filepath.Join(dir, "empty.spv")); err == nil {
		t.Error("readSPIRV accepted an empty blob")
	}
}
