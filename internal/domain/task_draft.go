package domain

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Draft parsing errors.
var (
	ErrEmptyFile     = newKind(ErrInvalidInput, "file is empty")
	ErrNoTasksInFile = newKind(ErrInvalidInput, "no tasks found in file")
)

// TaskDraft is a task to be created from file input.
// Detail, when present, becomes the task's first detail update.
type TaskDraft struct {
	Title    string
	Detail   string
	Priority Priority
	Category string
	FolderID string
	Labels   []string
}

// draftFrontmatter is the YAML header of one draft block.
type draftFrontmatter struct {
	Title    string    `yaml:"title"`
	Priority string    `yaml:"priority"`
	Category string    `yaml:"category"`
	Folder   string    `yaml:"folder"`
	Labels   labelList `yaml:"labels"`
}

// labelList accepts either a YAML sequence or a comma-separated scalar.
type labelList []string

func (l *labelList) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	case yaml.ScalarNode:
		raw = strings.Split(node.Value, ",")
	default:
		return errors.New("labels must be a list or a comma-separated string")
	}
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		label := strings.TrimSpace(r)
		if label != "" && !seen[label] {
			out = append(out, label)
			seen[label] = true
		}
	}
	*l = out
	return nil
}

// ParseTaskDrafts parses a markdown file containing one or more task definitions.
//
// Format:
//
//	---
//	title: Draft quarterly report
//	labels: [writing, q3]
//	priority: high
//	category: Work
//	---
//	Outline is in the shared folder.
//
//	---
//	title: Book venue
//	---
func ParseTaskDrafts(content string) ([]TaskDraft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyFile
	}

	blocks := splitDraftBlocks(content)
	if len(blocks) == 0 {
		return nil, ErrNoTasksInFile
	}

	drafts := make([]TaskDraft, 0, len(blocks))
	for i, b := range blocks {
		d, err := parseDraftBlock(b)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

type draftBlock struct {
	header []string
	body   []string
}

// splitDraftBlocks cuts content into header/body pairs.
// A "---" inside a body starts a new block only when the next line is a frontmatter key.
func splitDraftBlocks(content string) []draftBlock {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var blocks []draftBlock
	var cur *draftBlock
	inHeader := false

	for i, line := range lines {
		if strings.TrimRight(line, " \t") == "---" {
			switch {
			case cur == nil:
				cur = &draftBlock{}
				inHeader = true
				continue
			case inHeader:
				inHeader = false
				continue
			case i+1 < len(lines) && isDraftKey(lines[i+1]):
				blocks = append(blocks, *cur)
				cur = &draftBlock{}
				inHeader = true
				continue
			}
		}
		if cur == nil {
			continue
		}
		if inHeader {
			cur.header = append(cur.header, line)
		} else {
			cur.body = append(cur.body, line)
		}
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

func isDraftKey(line string) bool {
	for _, key := range []string{"title:", "labels:", "priority:", "category:", "folder:"} {
		if strings.HasPrefix(line, key) {
			return true
		}
	}
	return false
}

func parseDraftBlock(b draftBlock) (TaskDraft, error) {
	var fm draftFrontmatter
	if err := yaml.Unmarshal([]byte(strings.Join(b.header, "\n")), &fm); err != nil {
		return TaskDraft{}, fmt.Errorf("%w: frontmatter: %v", ErrInvalidInput, err)
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		return TaskDraft{}, ErrEmptyTitle
	}
	priority, err := ParsePriority(fm.Priority)
	if err != nil {
		return TaskDraft{}, err
	}

	return TaskDraft{
		Title:    title,
		Detail:   strings.TrimSpace(strings.Join(b.body, "\n")),
		Priority: priority,
		Category: strings.TrimSpace(fm.Category),
		FolderID: strings.TrimSpace(fm.Folder),
		Labels:   fm.Labels,
	}, nil
}
