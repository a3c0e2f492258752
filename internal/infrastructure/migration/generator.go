package migration

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/userschema/internal/shared/logger"
)

var revisionTemplate = template.Must(template.New("revision").Parse(`package migrations

import (
	"context"
	"time"

	"github.com/orris-inc/userschema/internal/infrastructure/migration"
)

func init() {
	register(&migration.Revision{
		ID:           {{printf "%q" .ID}},
		DownRevision: {{printf "%q" .DownRevision}},
		Message:      {{printf "%q" .Message}},
		CreatedAt:    time.Date({{.CreatedAt.Year}}, {{printf "%d" .CreatedAt.Month}}, {{.CreatedAt.Day}}, {{.CreatedAt.Hour}}, {{.CreatedAt.Minute}}, {{.CreatedAt.Second}}, 0, time.UTC),
		Upgrade: func(ctx context.Context, op migration.Operations) error {
			return nil
		},
		Downgrade: func(ctx context.Context, op migration.Operations) error {
			return nil
		},
	})
}
`))

// Generator handles creation of new revision files
type Generator struct {
	revisionsPath string
	now           func() time.Time
	logger        logger.Interface
}

// NewGenerator creates a new revision generator
func NewGenerator(revisionsPath string) *Generator {
	return &Generator{
		revisionsPath: revisionsPath,
		now:           time.Now,
		logger:        logger.WithComponent("migration.generator"),
	}
}

// NewRevisionID returns a fresh 12 character hex revision id.
func NewRevisionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateRevision writes a revision skeleton revising downRevision and returns
// the file path.
func (g *Generator) CreateRevision(message, downRevision string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("revision message is required")
	}

	rev := &Revision{
		ID:           NewRevisionID(),
		DownRevision: downRevision,
		Message:      message,
		CreatedAt:    g.now().UTC(),
	}

	var buf bytes.Buffer
	if err := revisionTemplate.Execute(&buf, rev); err != nil {
		return "", fmt.Errorf("failed to render revision: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("failed to format revision: %w", err)
	}

	if err := os.MkdirAll(g.revisionsPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create revisions directory: %w", err)
	}

	path := filepath.Join(g.revisionsPath, fmt.Sprintf("%s_%s.go", rev.ID, rev.Slug()))
	if err := os.WriteFile(path, src, 0644); err != nil {
		return "", fmt.Errorf("failed to write revision file: %w", err)
	}

	g.logger.Infow("revision file created",
		"revision", rev.ID,
		"down_revision", downRevision,
		"file", path)

	return path, nil
}
