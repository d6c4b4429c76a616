package server

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nanogit-community/gitsmartd/config"
	"github.com/nanogit-community/gitsmartd/hash"
	"github.com/nanogit-community/gitsmartd/pktline"
	"github.com/nanogit-community/gitsmartd/repo"
)

// WriteAdvertisement writes the info/refs response body for the given
// service ("git-upload-pack" or "git-receive-pack"): the service
// announcement line, then one record per ref (HEAD first, when resolvable),
// with the capability list NUL-appended to the first record. An empty
// repository advertises the single "capabilities^{}" sentinel record.
func WriteAdvertisement(ctx context.Context, out io.Writer, store repo.Store, cfg *config.Config, service string) error {
	w := pktline.NewWriter(out)

	if err := w.WriteLine(fmt.Sprintf("# service=%s\n", service)); err != nil {
		return err
	}
	if err := w.WriteFlush(); err != nil {
		return err
	}

	refs, err := store.GetReferences(ctx)
	if err != nil {
		return err
	}

	target, direct, isSymbolic, err := store.GetHEAD(ctx)
	if err != nil {
		return err
	}

	var symref, headLine string
	if isSymbolic {
		symref = "symref=HEAD:" + target
		if !direct.IsZero() {
			headLine = direct.String() + " HEAD"
		}
	} else if !direct.IsZero() {
		headLine = direct.String() + " HEAD"
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	var caps []string
	if symref != "" {
		caps = append(caps, symref)
	}
	caps = append(caps, "agent="+cfg.Agent)
	if service == "git-receive-pack" {
		caps = append(caps, "report-status", "delete-refs")
	}
	capSuffix := "\x00" + strings.Join(caps, " ")

	first := true
	writeRecord := func(line string) error {
		if first {
			line += capSuffix
			first = false
		}
		return w.WriteLine(line + "\n")
	}

	if headLine != "" {
		if err := writeRecord(headLine); err != nil {
			return err
		}
	}
	for _, name := range names {
		if err := writeRecord(fmt.Sprintf("%s %s", refs[name], name)); err != nil {
			return err
		}
	}

	if headLine == "" && len(names) == 0 {
		zero := hash.ZeroOfWidth(store.HashWidthBytes())
		if err := writeRecord(fmt.Sprintf("%s capabilities^{}", zero)); err != nil {
			return err
		}
	}

	return w.WriteFlush()
}
