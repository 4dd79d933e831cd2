package app

import (
	"net/http"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthcheckResponse{
		Status:      "UP",
		Version:     version,
		Environment: app.config.Env,
	}

	app.writeJSON(w, http.StatusOK, resp, nil)
}
