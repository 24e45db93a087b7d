package lab

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

// placeholderPattern matches {{cmd:N}}, where N indexes the step's commands.
var placeholderPattern = regexp.MustCompile(`\{\{\s*cmd:(\d+)\s*\}\}`)

// Verbs are the commands the fallback scan recognizes.
var Verbs = []string{
	"kubectl", "helm", "oc", "curl", "wget", "docker", "git",
	"python", "python3", "pip", "cat", "ls", "cd", "echo",
	"export", "mkdir", "watch", "k9s", "jq",
}

var verbSet = func() map[string]bool {
	m := make(map[string]bool, len(Verbs))
	for _, v := range Verbs {
		m[v] = true
	}
	return m
}()

// SegmentKind distinguishes prose from runnable commands.
type SegmentKind int

const (
	TextSegment SegmentKind = iota
	CommandSegment
)

// Segment is one run of rendered instruction text.
type Segment struct {
	Kind SegmentKind
	// Text is the prose, or the command as displayed.
	Text string
	// N is the 1-based affordance number of a command segment.
	N int
}

// Rendered is a step's text broken into segments.
type Rendered struct {
	Segments []Segment
	// Commands holds the command of each affordance; Commands[N-1].
	Commands []string
}

// Command returns the command behind affordance n, if any.
func (r Rendered) Command(n int) (string, bool) {
	if n < 1 || n > len(r.Commands) {
		return "", false
	}
	return r.Commands[n-1], true
}

// Render splits a step's text into prose and command segments.
func Render(step *api.Step) Rendered {
	if step == nil {
		return Rendered{}
	}
	return RenderText(step.Text(), step.CommandList())
}

// RenderText splits text into prose and command segments. Placeholders
// index into commands; an out-of-range placeholder stays literal. Text
// without any placeholder is scanned line by line for known command verbs.
func RenderText(text string, commands []string) Rendered {
	var b builder
	if placeholderPattern.MatchString(text) {
		b.placeholders(text, commands)
	} else {
		b.heuristic(text)
	}
	return b.out
}

type builder struct {
	out Rendered
}

func (b *builder) text(s string) {
	if s == "" {
		return
	}
	if n := len(b.out.Segments); n > 0 && b.out.Segments[n-1].Kind == TextSegment {
		b.out.Segments[n-1].Text += s
		return
	}
	b.out.Segments = append(b.out.Segments, Segment{Kind: TextSegment, Text: s})
}

func (b *builder) command(cmd string) {
	b.out.Commands = append(b.out.Commands, cmd)
	b.out.Segments = append(b.out.Segments, Segment{
		Kind: CommandSegment,
		Text: cmd,
		N:    len(b.out.Commands),
	})
}

func (b *builder) placeholders(text string, commands []string) {
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(text, -1) {
		b.text(text[last:m[0]])
		last = m[1]

		idx, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || idx < 0 || idx >= len(commands) || strings.TrimSpace(commands[idx]) == "" {
			b.text(text[m[0]:m[1]])
			continue
		}
		b.command(commands[idx])
	}
	b.text(text[last:])
}

func (b *builder) heuristic(text string) {
	lines := strings.SplitAfter(text, "\n")
	for _, line := range lines {
		b.scanLine(line)
	}
}

// scanLine finds commands in one line. A line whose first word (after
// indentation and an optional "$ " prompt) is a verb is a command through
// to the end of the line. Otherwise backtick-quoted spans that start with a
// verb are commands.
func (b *builder) scanLine(line string) {
	body := strings.TrimRight(line, "\r\n")
	eol := line[len(body):]

	trimmed := strings.TrimLeft(body, " \t")
	start := len(body) - len(trimmed)
	if strings.HasPrefix(trimmed, "$ ") {
		trimmed = strings.TrimLeft(trimmed[2:], " ")
		start = len(body) - len(trimmed)
	}

	cmd := strings.TrimRight(trimmed, " \t")
	if looksLikeCommand(cmd) {
		b.text(body[:start])
		b.command(cmd)
		b.text(body[start+len(cmd):] + eol)
		return
	}

	b.scanBackticks(body)
	b.text(eol)
}

func (b *builder) scanBackticks(body string) {
	rest := body
	for {
		open := strings.IndexByte(rest, '`')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open+1:], '`')
		if end < 0 {
			break
		}
		end += open + 1

		inner := strings.TrimSpace(rest[open+1 : end])
		if looksLikeCommand(inner) {
			b.text(rest[:open+1])
			b.command(inner)
			b.text("`")
		} else {
			b.text(rest[:end+1])
		}
		rest = rest[end+1:]
	}
	b.text(rest)
}

// looksLikeCommand reports whether s starts with a known verb and splits as
// a well-formed shell line.
func looksLikeCommand(s string) bool {
	if s == "" {
		return false
	}
	words, err := shellquote.Split(s)
	if err != nil || len(words) == 0 {
		return false
	}
	return verbSet[words[0]]
}
