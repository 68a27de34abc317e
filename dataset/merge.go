package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// Kinds of per-person source arrays.
const (
	KindDepth    = "depth"
	KindJoints   = "joints"
	KindPredicts = "predicts"
)

// PersonPath returns the per-person source file <NN>_<kind>_<view>.npy under root.
func PersonPath(root string, person int, kind, view string) string {
	return filepath.Join(root, fmt.Sprintf("%02d_%s_%s.npy", person, kind, view))
}

// loadPersons reads the arrays of every person concurrently, keeping the given order.
func loadPersons[T any](ctx context.Context, persons []int, load func(person int) (T, error)) ([]T, error) {
	out := make([]T, len(persons))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, person := range persons {
		i, person := i, person
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := load(person)
			if err != nil {
				return errors.Wrapf(err, "person %02d", person)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge concatenates the per-person depth and joint arrays of persons, in order, into the
// split arrays of a store rooted at out.
func Merge(ctx context.Context, root, out, view string, persons []int, split Split, logger logging.Logger) error {
	if err := CheckView(view); err != nil {
		return err
	}
	if len(persons) == 0 {
		return errors.New("no persons to merge")
	}
	if dups := lo.FindDuplicates(persons); len(dups) > 0 {
		return errors.Errorf("persons listed more than once: %v", dups)
	}
	data, err := loadPersons(ctx, persons, func(person int) (*Data, error) {
		logger.Debugw("loading person", "person", person, "view", view)
		depth, err := LoadDepth(PersonPath(root, person, KindDepth, view))
		if err != nil {
			return nil, err
		}
		joints, err := LoadJoints(PersonPath(root, person, KindJoints, view))
		if err != nil {
			return nil, err
		}
		return &Data{Depth: depth, Joints: joints}, nil
	})
	if err != nil {
		return err
	}

	depth, err := pose.ConcatDepth(lo.Map(data, func(d *Data, _ int) *pose.DepthBatch { return d.Depth })...)
	if err != nil {
		return err
	}
	joints, err := pose.Concat(lo.Map(data, func(d *Data, _ int) *pose.Batch { return d.Joints })...)
	if err != nil {
		return err
	}
	store := &Store{Root: out, View: view, Units: UnitsMeters, Logger: logger}
	logger.Infow("merged", "split", split, "persons", len(persons), "frames", depth.Frames())
	return store.Save(split, &Data{Depth: depth, Joints: joints})
}
