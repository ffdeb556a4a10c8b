// Package handlers contains the full set of handler functions and routes
// supported by the viewer.
package handlers

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/ardanlabs/utxochain/business/web/v1/mid"
	"github.com/ardanlabs/utxochain/foundation/web"
	"go.uber.org/zap"
)

//go:embed assets
var assets embed.FS

// UIMux constructs an http.Handler with all application routes defined. The
// node host is the public api the page reads the chain and events from.
func UIMux(build string, nodeHost string, shutdown chan os.Signal, log *zap.SugaredLogger) (*web.App, error) {
	app := web.NewApp(
		shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
		mid.Cors("*"),
	)

	// Register the index page for the website.
	ig, err := newIndex(build, nodeHost)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	// Register the assets.
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	app.Handle(http.MethodGet, "", "/assets/*", ig.assetHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))))

	return app, nil
}
