package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

// Artifact file name suffixes under the processed directory.
const (
	graphDataSuffix = "_graph_data.json"
	advancedSuffix  = "_advanced_analysis.json"
	clustersSuffix  = "_clusters.json"
)

// GraphDataPath returns the structural analysis file of artist.
func GraphDataPath(dir, artist string) string {
	return filepath.Join(dir, artist+graphDataSuffix)
}

// AdvancedPath returns the thematic analysis file of artist.
func AdvancedPath(dir, artist string) string {
	return filepath.Join(dir, artist+advancedSuffix)
}

// ClustersPath returns the clustering file of artist.
func ClustersPath(dir, artist string) string {
	return filepath.Join(dir, artist+clustersSuffix)
}

// WriteGraphData saves the structural analysis.
func WriteGraphData(dir string, data *GraphData) error {
	return writeArtifact(GraphDataPath(dir, data.ArtistSlug), data)
}

// ReadGraphData loads the structural analysis of artist.
func ReadGraphData(dir, artist string) (*GraphData, error) {
	var data GraphData
	if err := readArtifact(GraphDataPath(dir, artist), "run analyze first", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// WriteAdvanced saves the thematic analysis.
func WriteAdvanced(dir, artist string, adv *Advanced) error {
	return writeArtifact(AdvancedPath(dir, artist), adv)
}

// ReadAdvanced loads the thematic analysis of artist.
func ReadAdvanced(dir, artist string) (*Advanced, error) {
	var adv Advanced
	if err := readArtifact(AdvancedPath(dir, artist), "run setup to compute the advanced analysis", &adv); err != nil {
		return nil, err
	}
	return &adv, nil
}

// WriteClusters saves the clustering result.
func WriteClusters(dir, artist string, clusters Clusters) error {
	if clusters == nil {
		clusters = Clusters{}
	}
	return writeArtifact(ClustersPath(dir, artist), clusters)
}

// ReadClusters loads the clustering result of artist.
func ReadClusters(dir, artist string) (Clusters, error) {
	var clusters Clusters
	if err := readArtifact(ClustersPath(dir, artist), "run setup to cluster songs", &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// writeArtifact writes v as indented JSON through a temporary file so that
// readers never see a partial artifact.
func writeArtifact(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryProcessing).
			Context("path", path).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // artifacts are not secret
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, int64(len(data))).
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	GetLogger().Debug("artifact written",
		logger.String("path", path),
		logger.Int("bytes", len(data)))
	return nil
}

func readArtifact(path, hint string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.MissingData(path, hint)
		}
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Hint("the artifact is corrupt, re-run the step that produces it").
			Build()
	}
	return nil
}
