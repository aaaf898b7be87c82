// Package repro collects reproducibility information recorded with a sweep.
package repro

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/procexec"
	"github.com/banshee-data/sweep-logger/internal/timeutil"
)

// cleanStatus is the last line of `git status` in a clean work tree.
const cleanStatus = "nothing to commit, working tree clean"

// Info describes how and where a sweep was created. Git fields are empty
// outside a git work tree.
type Info struct {
	CommandLine           string
	Time                  time.Time
	GitRoot               string
	GitURL                string
	HasUncommittedChanges bool
	InGitRepo             bool
}

// Map returns the metadata entries for info.
func (i Info) Map() map[string]any {
	m := map[string]any{
		"command_line": i.CommandLine,
		"time":         i.Time.Format(time.ANSIC),
	}
	if i.InGitRepo {
		m["git_root"] = i.GitRoot
		m["git_url"] = i.GitURL
		m["git_has_uncommitted_changes"] = i.HasUncommittedChanges
	}
	return m
}

// Collector gathers Info.
type Collector struct {
	Commands procexec.CommandBuilder
	Clock    timeutil.Clock
	// Args is the command line, usually os.Args.
	Args []string
}

// Collect returns reproducibility info for the current directory. Git
// failures are logged and leave the git fields unset.
func (c Collector) Collect(ctx context.Context) Info {
	info := Info{
		CommandLine: CommandLine(c.Args),
		Time:        c.Clock.Now(),
	}

	if out, err := c.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil || out != "true" {
		return info
	}

	root, err := c.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		monitoring.Warnf("reading git root: %v", err)
		return info
	}
	remote, err := c.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		// git before 2.0 has no get-url.
		if remote, err = c.git(ctx, "config", "--get", "remote.origin.url"); err != nil {
			monitoring.Warnf("reading git remote: %v", err)
		}
	}
	hash, err := c.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		monitoring.Warnf("reading git HEAD: %v", err)
	}
	status, err := c.git(ctx, "status")
	if err != nil {
		monitoring.Warnf("reading git status: %v", err)
	}

	info.InGitRepo = true
	info.GitRoot = root
	info.GitURL = CommitURL(remote, hash)
	info.HasUncommittedChanges = !strings.HasSuffix(status, cleanStatus)
	return info
}

func (c Collector) git(ctx context.Context, args ...string) (string, error) {
	out, err := c.Commands.BuildCommand(ctx, "git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

var sshRemote = regexp.MustCompile(`git@([^:]+):`)

// CommitURL converts a remote URL into an https link to the given commit.
// SSH remotes (git@host:path) become https://host/path and a trailing .git
// is dropped.
func CommitURL(remote, hash string) string {
	url := strings.TrimSuffix(remote, ".git")
	if loc := sshRemote.FindStringSubmatchIndex(url); loc != nil {
		url = "https://" + url[loc[2]:loc[3]] + "/" + url[loc[1]:]
	}
	if hash == "" {
		return url
	}
	return url + "/tree/" + hash
}

var shellUnsafe = regexp.MustCompile(`[^\w@%+=:,./-]`)

// CommandLine joins args, quoting each one the way a POSIX shell would need.
func CommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !shellUnsafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// String renders info for logs.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.CommandLine)
	if i.InGitRepo {
		b.WriteString(" @ ")
		b.WriteString(i.GitURL)
		b.WriteString(" dirty=")
		b.WriteString(strconv.FormatBool(i.HasUncommittedChanges))
	}
	return b.String()
}
