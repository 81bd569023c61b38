package calibration

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func addProjectRoot(roots *[]string, seen map[string]bool, candidate string) {
	resolved, err := filepath.Abs(candidate)
	if err != nil {
		resolved = candidate
	}
	resolved = filepath.Clean(resolved)
	if seen[resolved] {
		return
	}
	seen[resolved] = true
	*roots = append(*roots, resolved)
}

// ProjectRoots walks a few ancestor directories above projectRoot looking
// for nearby project roots (a "worklogs" directory, or a dataset version
// index), so bundled executable layouts that split "_internal" from the
// source project root can still auto-discover calibration files without a
// manually supplied absolute path.
func ProjectRoots(projectRoot string) []string {
	var roots []string
	seen := make(map[string]bool)
	addProjectRoot(&roots, seen, projectRoot)

	primary := roots[0]
	if strings.ToLower(filepath.Base(primary)) == "_internal" {
		addProjectRoot(&roots, seen, filepath.Dir(primary))
	}

	baseRoots := append([]string{}, roots...)
	for _, base := range baseRoots {
		dir := base
		for i := 0; i < 6; i++ {
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
			if dirExists(filepath.Join(dir, "worklogs")) || fileExists(filepath.Join(dir, "data", "versions", "index.json")) {
				addProjectRoot(&roots, seen, dir)
			}
		}
	}

	return roots
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DiscoverLatestCalibrationCandidatesPath finds the most recently modified
// file matching pattern under any project root's worklogs/ tree.
func DiscoverLatestCalibrationCandidatesPath(projectRoot, pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultCalibrationCandidatesGlob
	}
	roots := ProjectRoots(projectRoot)

	var matches []string
	seen := make(map[string]bool)
	var searched []string

	for _, root := range roots {
		worklogsRoot := filepath.Join(root, "worklogs")
		searched = append(searched, filepath.Join(worklogsRoot, pattern))
		if !dirExists(worklogsRoot) {
			continue
		}
		_ = filepath.Walk(worklogsRoot, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || info.IsDir() {
				return nil
			}
			matched, matchErr := filepath.Match(pattern, info.Name())
			if matchErr != nil || !matched {
				return nil
			}
			resolved, absErr := filepath.Abs(path)
			if absErr != nil {
				resolved = path
			}
			if seen[resolved] {
				return nil
			}
			seen[resolved] = true
			matches = append(matches, resolved)
			return nil
		})
	}

	if len(matches) == 0 {
		return "", errorf("calibration file was not provided and auto-discovery found no matches. Searched: %s", strings.Join(searched, ", "))
	}

	sort.Slice(matches, func(i, j int) bool {
		iTime, iErr := os.Stat(matches[i])
		jTime, jErr := os.Stat(matches[j])
		var iMod, jMod int64
		if iErr == nil {
			iMod = iTime.ModTime().UnixNano()
		} else {
			iMod = -1
		}
		if jErr == nil {
			jMod = jTime.ModTime().UnixNano()
		} else {
			jMod = -1
		}
		if iMod != jMod {
			return iMod < jMod
		}
		return matches[i] < matches[j]
	})

	return matches[len(matches)-1], nil
}

// ResolveCalibrationPayloadPath resolves a (possibly empty, possibly
// relative) calibration candidates path against the project's roots,
// falling back to auto-discovery when the path is empty.
func ResolveCalibrationPayloadPath(calibrationCandidatesPath, projectRoot string) (string, error) {
	raw := strings.TrimSpace(calibrationCandidatesPath)
	if raw == "" {
		return DiscoverLatestCalibrationCandidatesPath(projectRoot, "")
	}

	if filepath.IsAbs(raw) {
		resolved, err := filepath.Abs(raw)
		if err != nil {
			return raw, nil
		}
		return resolved, nil
	}

	roots := ProjectRoots(projectRoot)
	var candidates []string
	for _, root := range roots {
		candidates = append(candidates, filepath.Clean(filepath.Join(root, raw)))
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}
	return raw, nil
}

// LoadCalibrationPayload resolves and reads a calibration candidates file,
// returning its parsed JSON object and the path it was loaded from.
func LoadCalibrationPayload(calibrationCandidatesPath, projectRoot string, readJSONFile func(string) (map[string]any, error)) (map[string]any, string, error) {
	resolvedPath, err := ResolveCalibrationPayloadPath(calibrationCandidatesPath, projectRoot)
	if err != nil {
		return nil, "", err
	}
	if !fileExists(resolvedPath) {
		return nil, "", errorf("calibration file not found: %s", resolvedPath)
	}
	payload, err := readJSONFile(resolvedPath)
	if err != nil {
		return nil, "", errorf("calibration file is not valid JSON: %s: %v", resolvedPath, err)
	}
	return payload, resolvedPath, nil
}

// CalibrationCandidateIDs lists every candidate id in a calibration payload,
// in the same order ListCalibrationCandidateSummaries would return them.
func CalibrationCandidateIDs(calibrationPayload map[string]any, requiredFields, optionalFields []string) ([]string, error) {
	summaries, err := ListCalibrationCandidateSummaries(calibrationPayload, requiredFields, optionalFields)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	return ids, nil
}
