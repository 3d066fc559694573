package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Info describes how a binary was built. BuildDate is whatever the linker was
// given via -ldflags "-X main.builddate=..." and is often empty.
type Info struct {
	Binary     string
	Module     string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
	BuildDate  string
}

func (i Info) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "This %s binary", i.Binary)
	if i.Module != "" {
		fmt.Fprintf(&b, " (%s)", i.Module)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, " was built with %s", i.GoVersion)
	} else {
		b.WriteString(" was built")
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&b, " at %s", i.BuildDate)
	}
	if i.Commit != "" {
		fmt.Fprintf(&b, " from commit %s", shortCommit(i.Commit))
		if i.CommitTime != "" {
			fmt.Fprintf(&b, " of %s", i.CommitTime)
		}
	}
	b.WriteString(".")
	if i.Modified {
		b.WriteString(" Files in the repo were modified after that commit.")
	}

	return b.String()
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}

// Read collects the build settings embedded in the running binary.
func Read(binary, buildDate string) Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Binary: binary, BuildDate: buildDate}
	}

	return fromBuildInfo(binary, buildDate, bi)
}

func fromBuildInfo(binary, buildDate string, bi *debug.BuildInfo) Info {
	out := Info{
		Binary:    binary,
		Module:    bi.Main.Path,
		GoVersion: bi.GoVersion,
		BuildDate: buildDate,
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
