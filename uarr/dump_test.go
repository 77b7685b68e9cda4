package uarr

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// The golden files pin the wire layout: header geometry, descriptor
// contents, and the FNV-1a name hash. A change here is a format change.
func TestDump_Golden(t *testing.T) {
	g := goldie.New(t)

	enc, err := Encode(Map{"a": Int(1)})
	require.NoError(t, err)
	out, err := Dump(enc)
	require.NoError(t, err)
	g.Assert(t, "single_field", []byte(out))

	empty, err := Encode(Map{})
	require.NoError(t, err)
	out, err = Dump(empty)
	require.NoError(t, err)
	g.Assert(t, "empty_record", []byte(out))
}

func TestDump_RejectsForeignBytes(t *testing.T) {
	_, err := Dump([]byte("FXWAL not a uarr record....................."))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}
