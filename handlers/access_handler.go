package handlers

import (
	"net/http"

	"github.com/opsdesk/opsdesk/middleware"
	"github.com/opsdesk/opsdesk/utils"
)

// AccessProbe answers 200 for any request that cleared the gate middleware
// ahead of it. Frontends poll these routes to decide which surfaces to render
// before fetching their data.
func AccessProbe(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]interface{}{
		"subject": middleware.GetSubjectFromContext(r.Context()),
	})
}
