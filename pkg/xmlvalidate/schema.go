package xmlvalidate

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/util"
	"github.com/lestrrat-go/libxml2"
	"github.com/lestrrat-go/libxml2/xsd"
	"github.com/rs/zerolog/log"
)

type Violation struct {
	Line       int
	Message    string
	RevisionID int
}

// SchemaSet materialises named schema definitions (a ZIP of XSDs held in
// the object store) to a local directory on first use and keeps the
// compiled schema for the process lifetime.
type SchemaSet struct {
	mutex   sync.Mutex
	schemas map[string]*xsd.Schema
}

func NewSchemaSet() *SchemaSet {
	return &SchemaSet{schemas: map[string]*xsd.Schema{}}
}

func (set *SchemaSet) get(ctx context.Context, name string) (*xsd.Schema, error) {
	set.mutex.Lock()
	defer set.mutex.Unlock()

	if schema, exists := set.schemas[name]; exists {
		return schema, nil
	}

	env := util.GetEnvironmentVariables()
	bucket := env["BODSPIPE_SCHEMA_BUCKET"]

	body, err := objectstore.GetBytes(ctx, bucket, fmt.Sprintf("schemas/%s.zip", name))
	if err != nil {
		return nil, pipeline.NewValidationError(pipeline.ErrorSchemaVersionMissing, "no schema definition for %s", name)
	}

	dir, err := os.MkdirTemp("", "bodspipeline-schema-")
	if err != nil {
		return nil, err
	}

	if err := unpackSchemaZip(body, dir); err != nil {
		return nil, err
	}

	root, err := findRootXSD(dir)
	if err != nil {
		return nil, pipeline.NewValidationError(pipeline.ErrorSchemaVersionMissing, "schema %s: %s", name, err)
	}

	schema, err := xsd.ParseFromFile(root)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}

	log.Info().Str("schema", name).Str("root", root).Msg("Materialised schema definition")

	set.schemas[name] = schema

	return schema, nil
}

// Validate checks the document against the named schema version, running
// the dangerous-XML pass first. Schema violations come back as a list, a
// dangerous document as an error.
func (set *SchemaSet) Validate(ctx context.Context, name string, body []byte, revisionID int) ([]Violation, error) {
	if err := DangerousScan(body); err != nil {
		return nil, err
	}

	schema, err := set.get(ctx, name)
	if err != nil {
		return nil, err
	}

	doc, err := libxml2.Parse(body)
	if err != nil {
		return nil, pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "parsing document: %s", err)
	}
	defer doc.Free()

	if err := schema.Validate(doc); err != nil {
		var violations []Violation

		if validationError, isValidation := err.(xsd.SchemaValidationError); isValidation {
			for _, schemaError := range validationError.Errors() {
				violations = append(violations, Violation{
					Message:    schemaError.Error(),
					RevisionID: revisionID,
				})
			}
		} else {
			violations = append(violations, Violation{Message: err.Error(), RevisionID: revisionID})
		}

		return violations, nil
	}

	return nil, nil
}

func unpackSchemaZip(body []byte, dir string) error {
	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return err
	}

	for _, zipFile := range archive.File {
		target := filepath.Join(dir, filepath.Clean(zipFile.Name))
		if !strings.HasPrefix(target, dir) {
			continue
		}

		if zipFile.FileInfo().IsDir() {
			os.MkdirAll(target, 0o755)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		reader, err := zipFile.Open()
		if err != nil {
			return err
		}

		out, err := os.Create(target)
		if err != nil {
			reader.Close()
			return err
		}

		if _, err := io.Copy(out, reader); err != nil {
			out.Close()
			reader.Close()
			return err
		}

		out.Close()
		reader.Close()
	}

	return nil
}

// findRootXSD locates the entry-point XSD: the conventional *_general.xsd
// or *_publication.xsd, otherwise a lone top-level .xsd file.
func findRootXSD(dir string) (string, error) {
	var candidates []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xsd") {
			continue
		}

		lower := strings.ToLower(entry.Name())
		if strings.HasSuffix(lower, "_general.xsd") || strings.HasSuffix(lower, "_publication.xsd") {
			return filepath.Join(dir, entry.Name()), nil
		}

		candidates = append(candidates, filepath.Join(dir, entry.Name()))
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	return "", fmt.Errorf("no root XSD found (%d candidates)", len(candidates))
}
