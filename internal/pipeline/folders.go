package pipeline

import (
	"context"
	"sync"

	"driveaudit/pkg/drive"
	"driveaudit/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultFolderConcurrency bounds parallel folder lookups to respect the
// provider's rate limits while still beating strictly sequential resolution.
const defaultFolderConcurrency = 20

// resolveFolderNames maps the given folder ids (duplicates allowed) to their
// display names. Per-id failures (access denied, deleted) are isolated and
// yield an empty name; the batch as a whole never fails.
func (p *Pipeline) resolveFolderNames(ctx context.Context, client drive.Client, ids []string) map[string]string {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	var (
		mu    sync.Mutex
		names = make(map[string]string, len(unique))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.FolderConcurrency)

	for id := range unique {
		g.Go(func() error {
			name, err := client.FolderName(gctx, id)
			if err != nil {
				// unresolvable folders degrade to an empty name
				logger.Debug(gctx, "could not resolve folder name",
					zap.String("folderID", id), zap.Error(err))
				name = ""
			}

			mu.Lock()
			names[id] = name
			mu.Unlock()

			return nil
		})
	}

	// workers never return errors; Wait only synchronizes completion
	_ = g.Wait()

	return names
}
