package server

import (
	"context"
	"crypto"
	"errors"
	"io"
	"strings"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/packfile"
	"github.com/nanogit-community/gitsmartd/pktline"
)

// ParseUploadPackRequest reads the want/have/done negotiation lines from r.
// Capabilities after the first want, NUL- or space-separated, are accepted
// and discarded; have lines are read and ignored since this server always
// replies with a full closure and a NAK. A want whose hash doesn't decode
// to hashWidth bytes is silently dropped, matching the tolerance this
// server extends to malformed client input elsewhere in the protocol.
func ParseUploadPackRequest(r *pktline.Reader, hashWidth int) ([]hash.Hash, error) {
	var wants []hash.Hash

	for {
		line, err := r.ReadPacket()
		if err != nil {
			if errors.Is(err, pktline.ErrFlush) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return wants, nil
			}
			return nil, err
		}

		text := strings.TrimRight(string(line), "\n")
		if nul := strings.IndexByte(text, 0); nul >= 0 {
			text = text[:nul]
		}

		fields := strings.Fields(text)
		if len(fields) < 1 {
			continue
		}

		switch fields[0] {
		case "want":
			if len(fields) < 2 {
				continue
			}
			h, err := hash.FromHex(fields[1])
			if err != nil || len(h) != hashWidth {
				continue
			}
			wants = append(wants, h)
		case "have":
			// always answered with NAK; no negotiation to track.
		case "done":
			return wants, nil
		}
	}
}

// WritePackResponse writes the NAK line and a packfile containing entries
// to out. Callers must compute entries (Closure) before calling this, so a
// missing-object failure can still be reported as a clean error response
// rather than a truncated pack.
func WritePackResponse(ctx context.Context, out io.Writer, hashWidth int, entries []ClosureEntry) error {
	w := pktline.NewWriter(out)
	if err := w.WriteLine("NAK\n"); err != nil {
		return err
	}

	algo := crypto.SHA1
	if hashWidth == 32 {
		algo = crypto.SHA256
	}

	pw, err := packfile.NewWriter(out, algo)
	if err != nil {
		return err
	}
	if err := pw.WriteHeader(uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := pw.WriteObject(e.Type, e.Data); err != nil {
			return err
		}
	}

	_, err = pw.Finish()
	return err
}
