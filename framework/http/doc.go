// Package http provides JSON response helpers and the component
// introspection endpoints.
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(v)                      // 200 {"data": v}
//	res.NotFound()                      // 404 {"message": "Not found."}
//	res.ValidationError(msg, bag)       // 422 {"message": msg, "errors": {...}}
//	res.Fail(err)                       // status chosen by the error kind
//
// # Introspection
//
//	gohttp.NewComponents(c).Routes(router, "/components")
//
//	GET  /components                  every component, sorted by name
//	GET  /components/{name}           one component, 404 when unknown
//	POST /components/{name}/resolve   build the target if needed
//	POST /components/{name}/finalize  release the target
//
// A component is shown as:
//
//	{
//	  "name": "cache",
//	  "id": "0d5a…",
//	  "built": true,
//	  "dependencies_resolved": true,
//	  "dependencies": ["client"],
//	  "config": {"host": "0.0.0.0", "port": 6379}
//	}
package http
