package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/domain/models"
)

// codec binds a record kind to its schema: required-field validation plus
// logical-key derivation on the write side, and shape normalization on the
// read side. One table here replaces per-kind copies of the store logic.
type codec struct {
	// logicalKey validates the payload and derives the key the filename
	// is built from. It must reject payloads missing required fields.
	logicalKey func(data []byte) (string, error)

	// normalize rewrites a stored payload to the current shape. Kinds
	// with a documented legacy shape parse both and re-emit the current
	// one; all others pass bytes through untouched.
	normalize func(data []byte) ([]byte, error)
}

var errMissingCode = errors.New("payload requires a group code")

var codecs = map[paths.Kind]codec{
	paths.KindPlans: {
		logicalKey: func(data []byte) (string, error) {
			p, err := models.ParseEvaluationPlan(data)
			if err != nil {
				return "", err
			}
			if err := p.Validate(); err != nil {
				return "", err
			}
			return fileKey(p.LogicalKey()), nil
		},
		normalize: func(data []byte) ([]byte, error) {
			p, err := models.ParseEvaluationPlan(data)
			if err != nil {
				return nil, err
			}
			return json.Marshal(p)
		},
	},
	paths.KindRosters: {
		logicalKey: func(data []byte) (string, error) {
			r, err := models.ParseRoster(data)
			if err != nil {
				return "", err
			}
			if err := r.Validate(); err != nil {
				return "", err
			}
			return fileKey(r.LogicalKey()), nil
		},
		normalize: passthrough,
	},
	paths.KindArtifacts:     generatedDocCodec,
	paths.KindSurveys:       generatedDocCodec,
	paths.KindResults:       generatedDocCodec,
	paths.KindParticipation: {
		logicalKey: func(data []byte) (string, error) {
			e, err := models.ParseParticipationEntry(data)
			if err != nil {
				return "", err
			}
			if e.Code == "" {
				return "", errMissingCode
			}
			return e.Code, nil
		},
		normalize: passthrough,
	},
	paths.KindMeta: {
		logicalKey: func(data []byte) (string, error) {
			g, err := models.ParseGroupMeta(data)
			if err != nil {
				return "", err
			}
			if g.Code == "" {
				return "", errMissingCode
			}
			return g.Code, nil
		},
		normalize: passthrough,
	},
}

var generatedDocCodec = codec{
	logicalKey: func(data []byte) (string, error) {
		d, err := models.ParseGeneratedDoc(data)
		if err != nil {
			return "", err
		}
		if err := d.Validate(); err != nil {
			return "", err
		}
		return fileKey(d.Title), nil
	},
	normalize: passthrough,
}

func passthrough(data []byte) ([]byte, error) { return data, nil }

func codecFor(kind paths.Kind) (codec, error) {
	c, ok := codecs[kind]
	if !ok {
		return codec{}, fmt.Errorf("%w: unknown record kind %q", ErrInvalidPayload, kind)
	}
	return c, nil
}

// fileKey makes a logical key safe for use inside a filename.
func fileKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.Join(strings.Fields(key), "-")
	return key
}
