package filediff

import (
	"sort"

	"filediff/internal/edits"
	"filediff/internal/gitdiff"
	"filediff/internal/logging"
)

// RebaseEdits returns the edits of all.Main that only exist because the
// parents of the two commits differ. The result is empty when there is no
// diff between the parents.
func RebaseEdits(all AllFileDiffs, logger *logging.Logger) edits.FileEdits {
	if all.ParentVsParent == nil {
		return edits.FileEdits{}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	transformer := edits.NewTransformer([]edits.FileEdits{all.ParentVsParent.FileEdits()}, logger)
	if all.OldVsParent != nil {
		transformer.TransformSideA([]edits.FileEdits{all.OldVsParent.FileEdits()})
	}
	if all.NewVsParent != nil {
		transformer.TransformSideB([]edits.FileEdits{all.NewVsParent.FileEdits()})
	}

	group := selectGroup(all, transformer.EditsByFilePath(), logger)
	if len(group) == 0 {
		return edits.FileEdits{}
	}

	result := edits.FileEdits{OldPath: group[0].OldPath, NewPath: group[0].NewPath}
	for _, e := range group {
		if edit, ok := e.ToEdit(); ok {
			result.Edits = append(result.Edits, edit)
		}
	}
	return result
}

// selectGroup returns the edits of the single file left after the
// transforms. Several files cannot arise from one file diff per side; should
// they appear anyway, the file of the main diff wins.
func selectGroup(all AllFileDiffs, byPath map[string][]edits.ContextAwareEdit, logger *logging.Logger) []edits.ContextAwareEdit {
	switch len(byPath) {
	case 0:
		return nil
	case 1:
		for _, g := range byPath {
			return g
		}
	}
	path := mainPath(all.Main)
	logger.Warn("rebase edits span several files", map[string]any{
		"key":   all.Key.String(),
		"files": sortedPaths(byPath),
		"using": path,
	})
	return byPath[path]
}

// TagEdits marks every edit of main that is also a rebase edit. The order of
// main is kept.
func TagEdits(main []edits.Edit, rebase edits.FileEdits) []TaggedEdit {
	rebaseSet := make(map[edits.Edit]bool, len(rebase.Edits))
	for _, e := range rebase.Edits {
		rebaseSet[e] = true
	}
	tagged := make([]TaggedEdit, 0, len(main))
	for _, e := range main {
		tagged = append(tagged, TaggedEdit{Edit: e, DueToRebase: rebaseSet[e]})
	}
	return tagged
}

func mainPath(main gitdiff.FileDiff) string {
	if main.ChangeType == gitdiff.Deleted {
		return main.OldPath
	}
	return main.NewPath
}

func sortedPaths(byPath map[string][]edits.ContextAwareEdit) []string {
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
