package mutation

import (
	"fmt"
	"os"

	"github.com/consensys/compress/lzss"
	"github.com/fxamacker/cbor/v2"

	"github.com/zkfuzz-go/zkfuzz/internal/symbolic"
)

// checkpointRecord is the serialisable snapshot of one generation.
// SaveCheckpoint fills every field except Inputs, and this package has no
// reader that restores a search from the snapshot.
type checkpointRecord struct {
	Generation    int                `cbor:"generation"`
	Seed          int64              `cbor:"seed"`
	Population    []checkpointGene   `cbor:"population"`
	Inputs        []checkpointAssign `cbor:"inputs"`
	DistinctSeen  int                `cbor:"distinct_seen"`
}

type checkpointGene struct {
	Score     float64          `cbor:"score"`
	Positions []int            `cbor:"positions"`
	Values    []string         `cbor:"values"` // symbolic.Render of each GeneValue.Value, in Positions order
	Dirs      []int            `cbor:"dirs"`
	Deletes   []bool           `cbor:"deletes"`
}

type checkpointAssign struct {
	Symbol string `cbor:"symbol"`
	Value  string `cbor:"value"`
}

// SaveCheckpoint serialises the current generation to CBOR, LZSS-compresses
// it, and writes it to path. Errors are returned rather than panicking: a
// failed checkpoint write should not abort an otherwise-healthy search.
func SaveCheckpoint(path string, generation int, cfg Config, pop Population, distinctSeen int) error {
	rec := checkpointRecord{
		Generation:   generation,
		Seed:         cfg.Seed,
		DistinctSeen: distinctSeen,
	}
	for _, ind := range pop {
		rec.Population = append(rec.Population, encodeGene(ind))
	}

	raw, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("mutation: checkpoint: encode: %w", err)
	}

	compressed, err := lzss.Compress(raw, nil)
	if err != nil {
		return fmt.Errorf("mutation: checkpoint: compress: %w", err)
	}

	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("mutation: checkpoint: write %s: %w", path, err)
	}
	return nil
}

func encodeGene(ind Individual) checkpointGene {
	cg := checkpointGene{Score: ind.Score}
	for _, pos := range sortedGeneKeys(ind.Gene) {
		gv := ind.Gene[pos]
		cg.Positions = append(cg.Positions, pos)
		if gv.Delete {
			cg.Values = append(cg.Values, "")
		} else {
			cg.Values = append(cg.Values, symbolic.Render(gv.Value))
		}
		cg.Dirs = append(cg.Dirs, int(gv.Dir))
		cg.Deletes = append(cg.Deletes, gv.Delete)
	}
	return cg
}
