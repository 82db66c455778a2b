// Package config provides configuration loading for homectl.
//
// Configuration is read from homectl.json in the working directory, then
// overlaid by a .env file next to it and finally by HOMECTL_* environment
// variables.
//
// # Configuration File Structure
//
//	{
//	  "baseUrl": "http://localhost:8080",
//	  "requestTimeout": "10s",
//	  "placeholder": "{value}",
//	  "toggle": { "method": "PATCH" },
//	  "modal": {
//	    "container": "modalHolder",
//	    "intents": {
//	      "new":    { "method": "POST",   "modal": "modalNewOrEdit" },
//	      "edit":   { "method": "PUT",    "modal": "modalNewOrEdit" },
//	      "delete": { "method": "DELETE", "modal": "modalDelete" }
//	    }
//	  },
//	  "listing": { "url": "/admin/person/list", "table": "dataTable" },
//	  "resync": { "statePath": "/device/{id}/state", "feedPath": "/ws" },
//	  "server": { "host": "localhost", "port": 8080 }
//	}
//
// # Environment
//
//	HOMECTL_BASE_URL         overrides baseUrl
//	HOMECTL_REQUEST_TIMEOUT  overrides requestTimeout
//	HOMECTL_TOGGLE_METHOD    overrides toggle.method
//	HOMECTL_HOST             overrides server.host
//	HOMECTL_PORT             overrides server.port
//	HOMECTL_LOG_LEVEL        debug, info, warn or error
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
