package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/web"
)

type index struct {
	tmpl     *template.Template
	build    string
	nodeHost string
}

func newIndex(build string, nodeHost string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	ig := index{
		tmpl:     tmpl,
		build:    build,
		nodeHost: nodeHost,
	}

	return &ig, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		Build    string
		NodeHost string
	}{
		Build:    ig.build,
		NodeHost: ig.nodeHost,
	}

	var b bytes.Buffer
	if err := ig.tmpl.Execute(&b, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	_, err := w.Write(b.Bytes())
	return err
}

func (ig *index) assetHandler(fs http.Handler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		fs.ServeHTTP(w, r)
		return nil
	}
}
