package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Emit(map[string]string{"result": "success"}, func(w io.Writer) {
		t.Fatal("text renderer should not run in json mode")
	})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "success", decoded["result"])
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.Emit(nil, func(w io.Writer) {
		fmt.Fprintln(w, "3 entries")
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3 entries")
}

func TestEmitOK(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, emitOK(&OutputFormatter{Format: "json", Writer: buf}))

	var resp okResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	buf.Reset()
	require.NoError(t, emitOK(&OutputFormatter{Format: "text", Writer: buf}))
	assert.Equal(t, "ok\n", buf.String())
}
