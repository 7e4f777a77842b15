package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version holds the current build version. Override with
// -ldflags "-X github.com/fusionn-dub/internal/version.Version=v1.2.3".
var Version = "dev"

// Name is the binary and service name.
const Name = "fusionn-dub"

const (
	separator = "────────────────────────────────────────────────────────────"
	banner    = `
   __           _                                 _       _
  / _|_   _ ___(_) ___  _ __  _ __            __| |_   _| |__
 | |_| | | / __| |/ _ \| '_ \| '_ \  _____   / _' | | | | '_ \
 |  _| |_| \__ \ | (_) | | | | | | ||_____| | (_| | |_| | |_) |
 |_|  \__,_|___/_|\___/|_| |_|_| |_|         \__,_|\__,_|_.__/
`
)

// Banner returns the ASCII-art project banner.
func Banner() string {
	return strings.Trim(banner, "\n")
}

// String returns "fusionn-dub <version> (<go version>)".
func String() string {
	return fmt.Sprintf("%s %s (%s)", Name, Version, runtime.Version())
}

// PrintBanner writes the decorated banner and version info to w (stdout if nil).
func PrintBanner(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, Banner())
	fmt.Fprintf(w, "\n  %s %s\n", Name, Version)
	fmt.Fprintf(w, "  Video Dubbing Pipeline\n")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w)
}
