package banner

import (
	"fmt"
	"io"
	"sort"

	"chatd/pkg/config"

	"github.com/dustin/go-humanize"
)

const banner = `
  ██████╗██╗  ██╗ █████╗ ████████╗██████╗
 ██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔══██╗
 ██║     ███████║███████║   ██║   ██║  ██║
 ██║     ██╔══██║██╔══██║   ██║   ██║  ██║
 ╚██████╗██║  ██║██║  ██║   ██║   ██████╔╝
  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═════╝
`

// Print writes the startup banner for an effective config.
func Print(w io.Writer, eff config.EffectiveConfigResult, version string) {
	cfg := eff.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Identity: %s\n", cfg.Identity())
	fmt.Fprintf(w, "Listen:   %s\n", cfg.Addr())
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", eff.Source())

	fmt.Fprintln(w, "\n== Transport ==================================================")
	fmt.Fprintf(w, "- Max envelope: %s\n", humanize.Bytes(uint64(cfg.Server.MaxBodySize.Int64())))
	rl := cfg.Transport.RateLimit
	if rl.RPS > 0 {
		fmt.Fprintf(w, "- Rate limit: %s rps, burst %s\n", humanize.Ftoa(rl.RPS), humanize.Comma(int64(rl.Burst)))
	} else {
		fmt.Fprintln(w, "- Rate limit: disabled")
	}

	names := make([]string, 0, len(cfg.Peers))
	for name := range cfg.Peers {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(w, "- Peers: none (relays to other nodes will fail)")
	}
	for _, name := range names {
		fmt.Fprintf(w, "- Peer %s: %s\n", name, cfg.Peers[name])
	}

	if cfg.Probe.Enabled {
		fmt.Fprintf(w, "- Probe: enabled (cron=%s)\n", cfg.Probe.Cron)
	} else {
		fmt.Fprintln(w, "- Probe: disabled")
	}
	fmt.Fprintln(w)
}
