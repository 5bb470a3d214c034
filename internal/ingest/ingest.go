package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"formdist/internal/config"
	"formdist/internal/form"
	"formdist/internal/parser"
	"formdist/internal/store"
	"formdist/internal/world"
)

type Result struct {
	DocumentsUpserted int
	DocumentsRemoved  int
	FormsIndexed      int
	FilesSkipped      int
	Errors            []error
}

type Options struct {
	Full bool
}

// Run copies the world documents under cfg.World.Paths into the catalog.
// Files whose hash is unchanged are skipped unless options.Full is set.
// Documents whose file disappeared are removed.
func Run(ctx context.Context, cfg *config.ProjectConfig, db Store, logger *zap.Logger, options Options) (*Result, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var existingHashes map[string]string
	if !options.Full {
		var err error
		existingHashes, err = db.GetSourceHashes(ctx)
		if err != nil {
			return nil, fmt.Errorf("get source hashes: %w", err)
		}
	}

	files, err := world.WalkYAML(cfg.World.Paths, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking world files: %w", err)
	}

	plugins := make(map[string]struct{}, len(cfg.LoadOrder))
	for _, plugin := range cfg.LoadOrder {
		plugins[strings.ToLower(strings.TrimSpace(plugin))] = struct{}{}
	}

	result := &Result{}
	for _, path := range files {
		hash, err := computeHash(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
			continue
		}
		if !options.Full {
			if existing, ok := existingHashes[path]; ok && existing == hash {
				result.FilesSkipped++
				continue
			}
		}

		doc, err := parser.ParseFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}
		if _, ok := plugins[strings.ToLower(doc.Plugin)]; !ok {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w: %s", path, world.ErrUnknownPlugin, doc.Plugin))
			continue
		}

		input, err := documentInput(doc, hash)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("encoding %s: %w", path, err))
			continue
		}
		if err := db.UpsertDocument(ctx, input); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("upserting %s: %w", path, err))
			continue
		}
		logger.Debug("ingested world file",
			zap.String("path", path),
			zap.String("plugin", doc.Plugin),
			zap.Int("forms", len(input.Forms)),
		)
		result.DocumentsUpserted++
		result.FormsIndexed += len(input.Forms)
	}

	removed, err := db.RemoveStaleDocuments(ctx, files)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("removing stale documents: %w", err))
	}
	result.DocumentsRemoved = int(removed)

	return result, nil
}

func documentInput(doc *parser.Document, hash string) (store.DocumentInput, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return store.DocumentInput{}, err
	}

	input := store.DocumentInput{
		SourceFile: doc.SourceFile,
		SourceHash: hash,
		Plugin:     doc.Plugin,
		Body:       body,
		Forms:      make([]store.FormInput, 0, len(doc.Forms)+len(doc.Actors)),
	}
	for _, spec := range doc.Forms {
		t, err := form.ParseType(spec.Type)
		if err != nil {
			return store.DocumentInput{}, err
		}
		record, err := json.Marshal(spec)
		if err != nil {
			return store.DocumentInput{}, err
		}
		input.Forms = append(input.Forms, store.FormInput{
			LocalID:  uint32(spec.ID.FormID),
			EditorID: spec.EditorID,
			FormType: t.String(),
			Record:   record,
		})
	}
	for _, spec := range doc.Actors {
		record, err := json.Marshal(spec)
		if err != nil {
			return store.DocumentInput{}, err
		}
		input.Forms = append(input.Forms, store.FormInput{
			LocalID:  uint32(spec.ID.FormID),
			EditorID: spec.EditorID,
			FormType: form.TypeNPC.String(),
			Name:     spec.Name,
			Record:   record,
		})
	}
	return input, nil
}

// LoadWorld rebuilds the world from the catalog documents.
func LoadWorld(ctx context.Context, cfg *config.ProjectConfig, db Store) (*world.World, error) {
	documents, err := db.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("catalog is empty, run ingest first")
	}

	docs := make([]*parser.Document, 0, len(documents))
	for _, d := range documents {
		var doc parser.Document
		if err := json.Unmarshal(d.Body, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", d.SourceFile, err)
		}
		doc.SourceFile = d.SourceFile
		docs = append(docs, &doc)
	}

	w, err := world.Load(cfg.LoadOrder, docs)
	if err != nil {
		return nil, fmt.Errorf("loading world: %w", err)
	}
	w.SetPlayerLevel(cfg.PlayerLevel)
	return w, nil
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
