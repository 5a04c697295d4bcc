package wire

import (
	"bytes"
	"testing"
)

func TestRoundTripPrimitives(t *testing.T) {
	buf := new(bytes.Buffer)

	if err := WriteU8(buf, 0xAB); err != nil {
		t.Fatal(err)
	}
	if err := WriteU32(buf, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := WriteU64(buf, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := WriteString(buf, "hello, world"); err != nil {
		t.Fatal(err)
	}

	gotU8, err := ReadU8(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotU8 != 0xAB {
		t.Errorf("got u8 %x, want %x", gotU8, 0xAB)
	}

	gotU32, err := ReadU32(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotU32 != 0xDEADBEEF {
		t.Errorf("got u32 %x, want %x", gotU32, 0xDEADBEEF)
	}

	gotU64, err := ReadU64(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotU64 != 0x0102030405060708 {
		t.Errorf("got u64 %x, want %x", gotU64, 0x0102030405060708)
	}

	gotStr, err := ReadString(buf)
	if err != nil {
		t.Fatal(err)
	}
	if gotStr != "hello, world" {
		t.Errorf("got string %q, want %q", gotStr, "hello, world")
	}
}

func TestRoundTripBigEndian(t *testing.T) {
	buf := new(bytes.Buffer)

	if err := WriteBE64(buf, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := WriteBE32(buf, 0xA1B2C3D4); err != nil {
		t.Fatal(err)
	}

	want64 := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got64 := buf.Bytes()[:8]
	if !bytes.Equal(got64, want64) {
		t.Errorf("big-endian u64 bytes = %x, want %x", got64, want64)
	}

	got64v, err := ReadBE64(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got64v != 0x0102030405060708 {
		t.Errorf("got be64 %x, want %x", got64v, 0x0102030405060708)
	}

	got32v, err := ReadBE32(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got32v != 0xA1B2C3D4 {
		t.Errorf("got be32 %x, want %x", got32v, 0xA1B2C3D4)
	}
}

func TestReadStringTooLong(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := WriteU32(buf, MaxStringLen+1); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadString(buf); err == nil {
		t.Fatal("expected error for oversize string length")
	}
}

func TestEmptyString(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := WriteString(buf, ""); err != nil {
		t.Fatal(err)
	}
	got, err := ReadString(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q, want empty string", got)
	}
}
