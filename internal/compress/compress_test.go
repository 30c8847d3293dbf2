package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	data := []byte(strings.Repeat(`{"quote":{"id":1,"text":"a stitch in time saves nine"}}`, 20))

	for _, name := range []string{NameNop, NameGZip, NameBrotli, NameLZ4} {
		t.Run(name, func(t *testing.T) {
			codec, err := New(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			encoded, err := codec.Encode(data)
			require.NoError(t, err)
			if name != NameNop {
				assert.Less(t, len(encoded), len(data))
			}

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestNew(t *testing.T) {
	codec, err := New("")
	require.NoError(t, err)
	assert.Equal(t, NameGZip, codec.Name())

	_, err = New("zip")
	assert.Error(t, err)
}
