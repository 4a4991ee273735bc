// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version reports strandctl's own build identity: the release
// tag baked in at link time via -ldflags, plus the Go toolchain and
// platform it was built with. This is deliberately separate from the
// scheduler's own runtime identifiers (thread/strand/fiber IDs live in
// pkg/contextlocal): it answers "which strandctl binary is this", not
// "which fiber is running".
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

var (
	Version   = ""
	GitBranch = ""
	GitCommit = ""
	BuildTime = ""
	Compiler  = ""
)

// VersionCmd prints this build's Info as indented JSON.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print strandctl's build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(string(GetVersion().Json()))
	},
}

// Release is a YY.Major.Minor.Patch release tag (YY is a 2-digit year),
// the scheme strandctl's release tags follow.
type Release struct {
	Year  int `json:"year"`
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (r *Release) String() string {
	return fmt.Sprintf("%02d.%d.%d.%d", r.Year, r.Major, r.Minor, r.Patch)
}

// ParseRelease parses a release tag in YY.Major.Minor.Patch form,
// stripping an optional leading "v". Unlike pkg/duration's single-unit
// parser this expects four dot-separated non-negative integers.
func ParseRelease(s string) (*Release, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if s == "" {
		return nil, fmt.Errorf("version: empty release tag")
	}

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("version: %q is not YY.Major.Minor.Patch", s)
	}

	fields := make([]int, 4)
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("version: %q is not YY.Major.Minor.Patch", s)
		}
		n := 0
		for j := 0; j < len(p); j++ {
			c := p[j]
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("version: %q is not YY.Major.Minor.Patch", s)
			}
			n = n*10 + int(c-'0')
		}
		fields[i] = n
	}
	if len(parts[0]) != 2 {
		return nil, fmt.Errorf("version: year field %q must be 2 digits", parts[0])
	}

	return &Release{Year: fields[0], Major: fields[1], Minor: fields[2], Patch: fields[3]}, nil
}

// Compare orders two releases: -1 if r < other, 0 if equal, 1 if r > other.
func (r *Release) Compare(other *Release) int {
	pairs := [][2]int{{r.Year, other.Year}, {r.Major, other.Major}, {r.Minor, other.Minor}, {r.Patch, other.Patch}}
	for _, pair := range pairs {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Info is what VersionCmd reports: the linker-supplied release identity
// plus the Go toolchain this binary was built with.
type Info struct {
	Version   string `json:"version"`
	GitBranch string `json:"gitBranch"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

func GetVersion() *Info {
	return &Info{
		Version:   Version,
		GitBranch: GitBranch,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetParsedRelease parses Version as a Release, or returns an error if
// it's unset or malformed.
func GetParsedRelease() (*Release, error) {
	if Version == "" {
		return nil, fmt.Errorf("version: no release tag linked into this build")
	}
	return ParseRelease(Version)
}

func (v *Info) Json() json.RawMessage {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return nil
	}
	return j
}
