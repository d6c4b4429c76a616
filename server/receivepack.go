package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/internal/httperr"
	"github.com/nanogit-community/gitsmartd/packfile"
	"github.com/nanogit-community/gitsmartd/pktline"
	"github.com/nanogit-community/gitsmartd/refs"
	"github.com/nanogit-community/gitsmartd/repo"
)

// ParseReceivePackCommands reads the ref-update command list from r, up to
// its terminating flush. A line ParseCommand can't make sense of is
// discarded per the command parser's client-tolerance rule rather than
// aborting the request. The capability list declared on the first command
// is returned alongside.
func ParseReceivePackCommands(r *pktline.Reader, hashWidth int) (cmds []refs.Command, capabilities []string, err error) {
	first := true
	for {
		line, err := r.ReadPacket()
		if err != nil {
			if errors.Is(err, pktline.ErrFlush) {
				return cmds, capabilities, nil
			}
			return nil, nil, err
		}

		cmd, caps, err := refs.ParseCommand(line, hashWidth)
		if err != nil {
			if errors.Is(err, refs.ErrSkipCommand) {
				continue
			}
			return nil, nil, err
		}
		if first {
			capabilities = caps
			first = false
		}
		cmds = append(cmds, cmd)
	}
}

func hasCapability(caps []string, name string) bool {
	for _, c := range caps {
		if c == name {
			return true
		}
	}
	return false
}

// HandleReceivePackBody drives the push flow: parse the command list,
// ingest a trailing packfile when any command actually moves a ref, apply
// the reference transaction, and write the pkt-line result. It returns the
// refs that were successfully updated, keyed by name with the new hash they
// now point at (for the post-push completion hook), and the number of
// objects ingested (for instrumentation).
//
// An error from parsing the command list, reading the packfile or applying
// the transaction is returned before anything is written to out, so the
// caller can still produce a clean status response; an error from writing
// the response itself is returned as is. A pack or transaction failure that
// the protocol itself has a vocabulary for (unpack error / ng) is instead
// written directly into the response and reported back as a nil error.
func HandleReceivePackBody(ctx context.Context, out io.Writer, body io.Reader, store repo.Store) (updated map[string]hash.Hash, ingested int, err error) {
	pr := pktline.NewReader(body)
	cmds, caps, err := ParseReceivePackCommands(pr, store.HashWidthBytes())
	if err != nil {
		return nil, 0, httperr.BadRequest("parsing receive-pack command list: %v", err)
	}

	reportStatus := hasCapability(caps, "report-status")

	needsPack := false
	for _, c := range cmds {
		if !c.New.IsZero() {
			needsPack = true
			break
		}
	}

	if needsPack {
		data, err := io.ReadAll(pr.Raw())
		if err != nil {
			return nil, 0, httperr.BadRequest("reading packfile: %v", err)
		}
		n, err := packfile.Ingest(ctx, store, data)
		if err != nil {
			return nil, 0, writeUnpackError(out, cmds, reportStatus, err)
		}
		ingested = n
	}

	results, err := refs.ApplyTransaction(ctx, store, cmds)
	if err != nil {
		return nil, ingested, httperr.Internal("applying reference transaction: %v", err)
	}

	w := pktline.NewWriter(out)
	if err := w.WriteLine("unpack ok\n"); err != nil {
		return nil, ingested, err
	}

	byName := make(map[string]hash.Hash, len(cmds))
	for _, c := range cmds {
		byName[c.Name] = c.New
	}

	for _, r := range results {
		if r.OK {
			if updated == nil {
				updated = make(map[string]hash.Hash, len(results))
			}
			updated[r.Name] = byName[r.Name]
		}
	}

	if reportStatus {
		for _, r := range results {
			var line string
			if r.OK {
				line = fmt.Sprintf("ok %s\n", r.Name)
			} else {
				line = fmt.Sprintf("ng %s %s\n", r.Name, r.Message)
			}
			if err := w.WriteLine(line); err != nil {
				return updated, ingested, err
			}
		}
	}

	return updated, ingested, w.WriteFlush()
}

// writeUnpackError reports a packfile ingestion failure in-band, per the
// protocol's own error vocabulary, rather than as an HTTP failure. It
// always returns nil unless writing the response itself fails.
func writeUnpackError(out io.Writer, cmds []refs.Command, reportStatus bool, cause error) error {
	msg := strings.ReplaceAll(cause.Error(), "\r", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")

	w := pktline.NewWriter(out)
	if err := w.WriteLine(fmt.Sprintf("unpack error %s\n", msg)); err != nil {
		return err
	}
	if reportStatus {
		for _, c := range cmds {
			if err := w.WriteLine(fmt.Sprintf("ng %s pack-error\n", c.Name)); err != nil {
				return err
			}
		}
	}
	return w.WriteFlush()
}
