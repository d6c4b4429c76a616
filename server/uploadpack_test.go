package server_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/pktline"
	"github.com/nanogit-community/gitsmartd/server"
)

func TestParseUploadPackRequest_CollectsWantsUntilDone(t *testing.T) {
	t.Parallel()

	h := "1111111111111111111111111111111111111111"
	body := pkt("want "+h+" side-band-64k", "have 2222222222222222222222222222222222222222", "done")

	r := pktline.NewReader(bytes.NewReader(body))
	wants, err := server.ParseUploadPackRequest(r, 20)
	require.NoError(t, err)
	require.Len(t, wants, 1)
	require.Equal(t, h, wants[0].String())
}

func TestParseUploadPackRequest_DropsWrongWidthWant(t *testing.T) {
	t.Parallel()

	body := pkt("want aaaa", "done")

	r := pktline.NewReader(bytes.NewReader(body))
	wants, err := server.ParseUploadPackRequest(r, 20)
	require.NoError(t, err)
	require.Empty(t, wants)
}
