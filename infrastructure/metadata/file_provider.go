// Package metadata contains MetadataProvider implementations and decorators.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"vaultgraph/domain/core/entities"
	pkgerrors "vaultgraph/pkg/errors"
)

// exportExtensions are tried in order when locating a vault's export file
var exportExtensions = []string{".json", ".yaml", ".yml"}

// Export is the on-disk shape of a vault metadata export. A bare list of
// records is accepted as well.
type Export struct {
	Vault     string                    `json:"vault,omitempty" yaml:"vault,omitempty"`
	Documents []entities.DocumentRecord `json:"documents" yaml:"documents"`
}

// FileProvider reads vault metadata exports from a directory. Each vault is
// one file named after the vault id, e.g. notes.json or notes.yaml.
type FileProvider struct {
	dir    string
	logger *zap.Logger
}

// NewFileProvider creates a provider rooted at dir
func NewFileProvider(dir string, logger *zap.Logger) *FileProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileProvider{dir: dir, logger: logger}
}

// Dir returns the directory the provider reads from
func (p *FileProvider) Dir() string {
	return p.dir
}

// GetMetadata implements ports.MetadataProvider. A vault without an export
// file yields no records.
func (p *FileProvider) GetMetadata(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validVaultID(vaultID) {
		return nil, pkgerrors.NewValidationErrorf("invalid vault id %q", vaultID)
	}

	path, err := p.locate(vaultID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("No metadata export for vault", zap.String("vault", vaultID))
			return []entities.DocumentRecord{}, nil
		}
		return nil, pkgerrors.NewMetadataUnavailableError(vaultID, err)
	}

	records, err := ReadExportFile(path)
	if err != nil {
		return nil, pkgerrors.NewMetadataUnavailableError(vaultID, err)
	}

	p.logger.Debug("Loaded metadata export",
		zap.String("vault", vaultID),
		zap.String("file", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (p *FileProvider) locate(vaultID string) (string, error) {
	for _, ext := range exportExtensions {
		candidate := filepath.Join(p.dir, vaultID+ext)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fs.ErrNotExist
}

// ReadExportFile parses a JSON or YAML metadata export
func ReadExportFile(path string) ([]entities.DocumentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata export %s: %w", path, err)
	}
	records, err := ParseExport(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata export %s: %w", path, err)
	}
	return records, nil
}

// ParseExport decodes an export document. JSON input is decoded by the YAML
// parser as well.
func ParseExport(data []byte) ([]entities.DocumentRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return []entities.DocumentRecord{}, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var records []entities.DocumentRecord
		if err := root.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	case yaml.MappingNode:
		var export Export
		if err := root.Decode(&export); err != nil {
			return nil, err
		}
		if export.Documents == nil {
			export.Documents = []entities.DocumentRecord{}
		}
		return export.Documents, nil
	default:
		return nil, fmt.Errorf("unexpected export root of kind %d", root.Kind)
	}
}

// VaultIDFromFile returns the vault an export file belongs to, or false for
// files that are not exports.
func VaultIDFromFile(path string) (string, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	for _, known := range exportExtensions {
		if ext == known {
			id := strings.TrimSuffix(base, filepath.Ext(base))
			return id, validVaultID(id)
		}
	}
	return "", false
}

func validVaultID(id string) bool {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, `/\:`)
}
