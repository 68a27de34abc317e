package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/depthpose/logging"
	"go.viam.com/depthpose/pose"
)

// progressEvery is how many frames pass between progress logs.
const progressEvery = 100

// ResizeDir resizes, in place, every .npy file in dir whose name contains "depth" to
// width x height. The files keep their dtype.
func ResizeDir(ctx context.Context, dir string, width, height int, logger logging.Logger) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid size %dx%d", width, height)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		name := e.Name()
		return filepath.Join(dir, name), !e.IsDir() && strings.Contains(name, KindDepth) && filepath.Ext(name) == ".npy"
	})
	for _, path := range files {
		if err := resizeFile(ctx, path, width, height, logger); err != nil {
			return err
		}
	}
	return nil
}

func resizeFile(ctx context.Context, path string, width, height int, logger logging.Logger) error {
	logger.Debugw("loading", "file", path)
	depth, err := LoadDepth(path)
	if err != nil {
		return err
	}
	out, err := pose.NewDepthBatch(depth.Frames(), height, width)
	if err != nil {
		return err
	}
	for i := 0; i < depth.Frames(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i%progressEvery == 0 {
			logger.Debugf("processed %d/%d", i, depth.Frames())
		}
		copy(out.Frame(i).Data(), depth.Frame(i).Resize(width, height).Data())
	}
	if err := out.SetDtype(depth.Dtype()); err != nil {
		return err
	}
	return SaveDepth(path, out)
}
