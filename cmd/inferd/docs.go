package main

// General API documentation for swaggo. Build with -tags=swagger to serve it.
//
// @title           inferd API
// @version         1.0
// @description     Loopback control API for the local inference server supervisor.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
