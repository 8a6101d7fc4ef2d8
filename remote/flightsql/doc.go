// Package flightsql implements scan.Connection over an Arrow Flight SQL
// server.
//
// Each statement holds one server-side prepared statement. Results are read
// from every endpoint of the returned FlightInfo in order. Errors carry the
// message of the gRPC status returned by the server.
//
//	conn, err := flightsql.Dial("localhost:31337")
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//	f := scan.New(conn, scan.QueryText("SELECT * FROM sales"))
//
// WithBearerToken sends "authorization: Bearer <token>" on every call.
package flightsql
