package media

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"local-gallery/internal/logging"
)

// Sidecar holds the text and metadata files stored next to an image.
type Sidecar struct {
	Caption  *string         `json:"caption"`
	Metadata json.RawMessage `json:"metadata"`
}

// Empty reports whether no sidecar file was found.
func (s Sidecar) Empty() bool {
	return s.Caption == nil && s.Metadata == nil
}

func captionCandidates(stem string) []string {
	return []string{stem + ".txt", stem + ".caption.txt", stem + ".md"}
}

// ReadSidecar looks for caption and JSON metadata files next to imagePath.
// Missing or unreadable files are not errors; a JSON file that does not
// parse is ignored.
func ReadSidecar(imagePath string) Sidecar {
	dir := filepath.Dir(imagePath)
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return Sidecar{}
	}

	var sc Sidecar
	for _, name := range captionCandidates(stem) {
		data, err := readRegular(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		caption := string(data)
		sc.Caption = &caption
		break
	}

	data, err := readRegular(filepath.Join(dir, stem+".json"))
	if err == nil {
		if json.Valid(data) {
			sc.Metadata = json.RawMessage(data)
		} else {
			logging.Debug("Ignoring invalid sidecar JSON for %s", imagePath)
		}
	}
	return sc
}

func readRegular(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, os.ErrInvalid
	}
	return os.ReadFile(path)
}
