package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/pipeline"
	"github.com/guxiaodai/restpf/resource"
)

// record is the stored data of one resource instance.
type record struct {
	ID            any `json:"id"`
	Attributes    any `json:"attributes"`
	Relationships any `json:"relationships"`
}

// fixtures maps resource names to their records keyed by id.
type fixtures map[string]map[string]record

func decodeJSON(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func loadFixtures(path string) (fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	defer f.Close()
	var fx fixtures
	if err := decodeJSON(f, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return fx, nil
}

func idKey(id any) string { return fmt.Sprint(id) }

// serveRecords registers GET callbacks on the collection roots of res that
// answer from records.
func serveRecords(res *resource.Resource, records map[string]record) error {
	lookup := func(c *callback.Context) (record, bool) {
		id, _ := c.Value(pipeline.BindResourceID)
		rec, ok := records[idKey(id)]
		return rec, ok
	}
	if err := res.Attributes.At().GET(func(_ context.Context, c *callback.Context) (any, error) {
		rec, ok := lookup(c)
		if !ok {
			return nil, nil
		}
		return restpf.Normalize(res.Attributes.Root(), rec.Attributes), nil
	}, callback.Name("fixture.attributes")); err != nil {
		return err
	}
	return res.Relationships.At().GET(func(_ context.Context, c *callback.Context) (any, error) {
		rec, ok := lookup(c)
		if !ok {
			return nil, nil
		}
		return restpf.Normalize(res.Relationships.Root(), rec.Relationships), nil
	}, callback.Name("fixture.relationships"))
}
