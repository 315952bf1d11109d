package commands

import (
	"fmt"
	"os"

	"github.com/rackworks/bomctl/internal/cli/output"
	"github.com/rackworks/bomctl/pkg/config"
	"github.com/rackworks/bomctl/pkg/itemcache"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
	"github.com/rackworks/bomctl/pkg/workbook"
)

// appEnv wires the shared dependencies a command needs. Commands build
// only what they use: offline commands never touch the network.
type appEnv struct {
	cfg   *config.Config
	store propstore.Store

	client *plm.Client
	cache  *itemcache.Cache
	wb     *workbook.FileWorkbook
	wbPath string
}

// newEnv opens the property store and resolves the printer. Callers must
// Close.
func newEnv() (*appEnv, error) {
	cfg := loadedConfig
	if cfg == nil {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return nil, err
		}
	}

	store, err := propstore.OpenBadger(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open property store at %s: %w", cfg.Data.Dir, err)
	}
	return &appEnv{cfg: cfg, store: store}, nil
}

func (e *appEnv) Close() {
	if e.wb != nil {
		if err := e.wb.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save workbook: %v\n", err)
		}
	}
	_ = e.store.Close()
}

// Client builds the authenticated PLM client on first use.
func (e *appEnv) Client() (*plm.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	baseURL, err := config.ResolveBaseURL(e.cfg, e.store)
	if err != nil {
		return nil, err
	}
	creds, err := config.ResolveCredentials(e.cfg, e.store)
	if err != nil {
		return nil, err
	}

	session, err := plm.NewSessionManager(baseURL, creds, e.store)
	if err != nil {
		return nil, err
	}
	session.WithTTL(e.cfg.API.SessionTTL)

	e.client = plm.NewClient(baseURL, session)
	return e.client, nil
}

// Cache returns the item cache bound to the client.
func (e *appEnv) Cache() (*itemcache.Cache, error) {
	if e.cache != nil {
		return e.cache, nil
	}
	client, err := e.Client()
	if err != nil {
		return nil, err
	}
	e.cache = itemcache.New(e.store, client).WithTTL(e.cfg.Cache.TTL)
	return e.cache, nil
}

// Workbook opens the workbook file named by --workbook or the config.
// It is saved on Close.
func (e *appEnv) Workbook() (*workbook.FileWorkbook, error) {
	if e.wb != nil {
		return e.wb, nil
	}

	path := flagWorkbook
	if path == "" {
		path = e.cfg.Data.Workbook
	}
	if path == "" {
		return nil, fmt.Errorf("no workbook file: pass --workbook or set data.workbook")
	}

	wb, err := workbook.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	e.wb = wb
	e.wbPath = path
	return wb, nil
}

// Printer builds the output printer from the global flags.
func (e *appEnv) Printer() (*output.Printer, error) {
	format, err := output.ParseFormat(flagOutput)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !flagNoColor), nil
}
