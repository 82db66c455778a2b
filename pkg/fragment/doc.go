// Package fragment is the client of the server-rendered fragment service.
//
// The service is a black box reached over HTTP: fragment endpoints return
// markup, partial-update endpoints accept PATCH or POST. Any non-2xx
// response is a failure carrying the response body.
//
//	c, _ := fragment.New("http://localhost:8080", fragment.WithTimeout(5*time.Second))
//	resp, err := c.Do(ctx, fragment.Request{Method: http.MethodPut, URL: "/device/3/edit"})
//
// Returned markup can be inspected with Parse before it is injected into
// the page model.
package fragment
