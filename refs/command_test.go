package refs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanogit-community/gitsmartd/refs"
)

func TestParseCommand_SkipSentinel(t *testing.T) {
	t.Parallel()

	_, _, err := refs.ParseCommand([]byte("not enough fields"), 20)
	require.ErrorIs(t, err, refs.ErrSkipCommand)
}

const (
	zeroHex = "0000000000000000000000000000000000000000"
	oneHex  = "1111111111111111111111111111111111111111"
	twoHex  = "2222222222222222222222222222222222222222"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	testcases := map[string]struct {
		line       string
		wantErr    bool
		wantCaps   []string
		wantCreate bool
		wantDelete bool
		wantUpdate bool
	}{
		"create": {
			line:       zeroHex + " " + oneHex + " refs/heads/main",
			wantCreate: true,
		},
		"update": {
			line:       oneHex + " " + twoHex + " refs/heads/main",
			wantUpdate: true,
		},
		"delete": {
			line:       oneHex + " " + zeroHex + " refs/heads/main",
			wantDelete: true,
		},
		"with capabilities": {
			line:       zeroHex + " " + oneHex + " refs/heads/main\x00report-status side-band-64k",
			wantCreate: true,
			wantCaps:   []string{"report-status", "side-band-64k"},
		},
		"malformed": {
			line:    "not enough fields",
			wantErr: true,
		},
		"bad hash": {
			line:    "zz " + oneHex + " refs/heads/main",
			wantErr: true,
		},
	}

	for name, tc := range testcases {
		t.Run(name, func(t *testing.T) {
			cmd, caps, err := refs.ParseCommand([]byte(tc.line), 20)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCreate, cmd.IsCreate())
			require.Equal(t, tc.wantDelete, cmd.IsDelete())
			require.Equal(t, tc.wantUpdate, cmd.IsUpdate())
			if tc.wantCaps != nil {
				require.Equal(t, tc.wantCaps, caps)
			}
		})
	}
}

func TestParseCommand_WrongHashWidth(t *testing.T) {
	t.Parallel()

	_, _, err := refs.ParseCommand([]byte(zeroHex+" "+oneHex+" refs/heads/main"), 32)
	require.Error(t, err)
}
