package adapter

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/record"
)

// Generic handles documents that already are collections of records: an
// object of key → record (id from the record's "id" field, else the key) or
// an array of records (id from "id", else generated).
type Generic struct {
	IDs IDGenerator
}

// Name implements Adapter.
func (g *Generic) Name() string { return "generic" }

// Shape implements Adapter.
func (g *Generic) Shape(subdomain string, doc record.Value) (*record.Object, error) {
	out := record.NewObject()
	switch t := doc.(type) {
	case *record.Object:
		t.Range(func(key string, v record.Value) bool {
			id, ok := recordID(v)
			if !ok {
				id = key
			}
			out.Set(id, v)
			return true
		})
	case []record.Value:
		for i, v := range t {
			id, ok := recordID(v)
			if !ok {
				id = g.IDs.ID(subdomain, i)
			}
			out.Set(id, v)
		}
	default:
		return nil, eris.Wrapf(ErrShape, "generic: %s is a %s", subdomain, record.TypeName(doc))
	}
	return out, nil
}

// Body handles product catalogues of key → product where each product
// carries a nested "body" of sections → features → bullets. The body is
// reduced to one newline-joined text with every bullet punctuated.
type Body struct {
	IDs IDGenerator
}

// Name implements Adapter.
func (b *Body) Name() string { return "body" }

// Shape implements Adapter.
func (b *Body) Shape(subdomain string, doc record.Value) (*record.Object, error) {
	products, ok := doc.(*record.Object)
	if !ok {
		return nil, eris.Wrapf(ErrShape, "body: %s is a %s", subdomain, record.TypeName(doc))
	}
	log := zap.L().With(zap.String("component", "adapter.body"), zap.String("subdomain", subdomain))

	out := record.NewObject()
	for i, key := range products.Keys() {
		v, _ := products.Get(key)
		product, ok := v.(*record.Object)
		if !ok {
			log.Warn("skipping non-object product", zap.String("key", key), zap.String("type", record.TypeName(v)))
			continue
		}
		cleaned, err := CleanBody(product)
		if err != nil {
			log.Warn("skipping product", zap.String("key", key), zap.Error(err))
			continue
		}
		id, ok := recordID(product)
		if !ok {
			id = b.IDs.ID(subdomain, i)
		}
		out.Set(id, cleaned)
	}
	return out, nil
}

// CleanBody returns a copy of product whose "body" is replaced by the
// newline-joined bullet texts. Bullets not ending in '.', '!' or '?' get a
// '.'. Malformed sections, features and bullets are ignored.
func CleanBody(product *record.Object) (*record.Object, error) {
	body, ok := product.Get("body")
	if !ok {
		return nil, eris.Wrap(ErrShape, "body: missing body field")
	}
	sections, ok := body.([]record.Value)
	if !ok {
		return nil, eris.Wrapf(ErrShape, "body: body is a %s", record.TypeName(body))
	}

	var lines []string
	for _, section := range sections {
		features, ok := section.([]record.Value)
		if !ok {
			continue
		}
		for _, feature := range features {
			bullets, ok := feature.([]record.Value)
			if !ok {
				continue
			}
			for _, bullet := range bullets {
				if text, ok := bulletText(bullet); ok {
					lines = append(lines, punctuate(text))
				}
			}
		}
	}

	replica := product.Clone()
	replica.Set("body", strings.Join(lines, "\n"))
	return replica, nil
}

// bulletText returns the text of a bullet, which is a sequence whose first
// element is the text. Anything else is not a bullet.
func bulletText(bullet record.Value) (string, bool) {
	seq, ok := bullet.([]record.Value)
	if !ok || len(seq) == 0 {
		return "", false
	}
	text, ok := seq[0].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func punctuate(text string) string {
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	default:
		return text + "."
	}
}

// Results handles search-style documents with a top-level "results"
// sequence. Every element becomes a record under a generated id.
type Results struct {
	IDs IDGenerator
}

// Name implements Adapter.
func (r *Results) Name() string { return "results" }

// Shape implements Adapter.
func (r *Results) Shape(subdomain string, doc record.Value) (*record.Object, error) {
	obj, ok := doc.(*record.Object)
	if !ok {
		return nil, eris.Wrapf(ErrShape, "results: %s is a %s", subdomain, record.TypeName(doc))
	}
	raw, ok := obj.Get("results")
	if !ok {
		return nil, eris.Wrapf(ErrShape, "results: %s has no results field", subdomain)
	}
	items, ok := raw.([]record.Value)
	if !ok {
		return nil, eris.Wrapf(ErrShape, "results: %s results is a %s", subdomain, record.TypeName(raw))
	}

	out := record.NewObject()
	for i, item := range items {
		out.Set(r.IDs.ID(subdomain, i), item)
	}
	return out, nil
}
