package filediff

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"filediff/internal/edits"
	"filediff/internal/gitdiff"
	"filediff/internal/repo"
)

const (
	magicAbbrevLength = 8
	magicDateLayout   = "2006-01-02 15:04:05 -0700"
	devNull           = "/dev/null"
)

// MagicText returns the content of the synthetic file path at commit id.
func MagicText(session *repo.Session, path string, id plumbing.Hash) (string, error) {
	c, err := session.Commit(id)
	if err != nil {
		return "", err
	}
	return magicText(session, path, c)
}

// magicText renders the content of the synthetic file path for commit c.
func magicText(session *repo.Session, path string, c *object.Commit) (string, error) {
	if path == MergeListPath {
		return mergeListText(session, c)
	}
	return commitMessageText(session, c), nil
}

// commitMessageText renders the commit headers followed by the message.
func commitMessageText(session *repo.Session, c *object.Commit) string {
	var b strings.Builder
	switch c.NumParents() {
	case 0:
	case 1:
		fmt.Fprintf(&b, "Parent:     %s\n", parentLabel(session, c.ParentHashes[0]))
	default:
		for i, p := range c.ParentHashes {
			label := "Merge Of:   "
			if i > 0 {
				label = strings.Repeat(" ", len(label))
			}
			fmt.Fprintf(&b, "%s%s\n", label, parentLabel(session, p))
		}
	}
	fmt.Fprintf(&b, "Author:     %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(&b, "AuthorDate: %s\n", c.Author.When.Format(magicDateLayout))
	fmt.Fprintf(&b, "Commit:     %s <%s>\n", c.Committer.Name, c.Committer.Email)
	fmt.Fprintf(&b, "CommitDate: %s\n", c.Committer.When.Format(magicDateLayout))
	b.WriteString("\n")
	b.WriteString(c.Message)
	return b.String()
}

func parentLabel(session *repo.Session, id plumbing.Hash) string {
	abbrev := id.String()[:magicAbbrevLength]
	parent, err := session.Commit(id)
	if err != nil {
		return abbrev
	}
	return fmt.Sprintf("%s (%s)", abbrev, subject(parent.Message))
}

// mergeListText lists the commits a merge brings in. It is empty for
// commits with fewer than two parents.
func mergeListText(session *repo.Session, c *object.Commit) (string, error) {
	if c.NumParents() < 2 {
		return "", nil
	}
	merged, err := session.MergedCommits(c.Hash)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Merge List:\n\n")
	for _, m := range merged {
		fmt.Fprintf(&b, "* %s %s\n", m.Hash.String()[:magicAbbrevLength], subject(m.Message))
	}
	return b.String(), nil
}

func subject(message string) string {
	lines := gitdiff.SplitLines(strings.TrimSpace(message))
	if len(lines) > 0 {
		return lines[0]
	}
	return message
}

// magicOutput diffs aText against bText as if they were the content of the
// synthetic file. Without an A side the file appears as added.
func magicOutput(key Key, ct ComparisonType, aText, bText string, hasA bool) FileDiffOutput {
	path := key.NewFilePath
	if !hasA {
		aText = ""
	}

	var aID plumbing.Hash
	if hasA {
		aID = plumbing.ComputeHash(plumbing.BlobObject, []byte(aText))
	}
	bID := plumbing.ComputeHash(plumbing.BlobObject, []byte(bText))

	oldName := "a/" + path
	if !hasA {
		oldName = devNull
	}
	header := []string{
		fmt.Sprintf("diff --git %s b/%s", oldName, path),
		fmt.Sprintf("index %s..%s", gitdiff.Abbreviate(aID), gitdiff.Abbreviate(bID)),
		"--- " + oldName,
		"+++ b/" + path,
	}

	lineEdits := gitdiff.ComputeContentEdits(key.Algorithm, key.Whitespace, aText, bText)

	out := FileDiffOutput{
		OldCommit:      key.OldCommit,
		NewCommit:      key.NewCommit,
		ComparisonType: ct,
		NewPath:        path,
		NewMode:        filemode.Regular,
		ChangeType:     gitdiff.Added,
		PatchType:      gitdiff.PatchUnified,
		HeaderLines:    header,
		Edits:          TagEdits(lineEdits, edits.FileEdits{}),
		Size:           int64(len(bText)),
		SizeDelta:      int64(len(bText) - len(aText)),
	}
	if hasA {
		out.OldPath = path
		out.OldMode = filemode.Regular
		out.ChangeType = gitdiff.Modified
	}
	return out
}
