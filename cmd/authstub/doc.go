// Command authstub serves the zmooth auth endpoints for local development.
//
//	@title			zmooth auth stub
//	@version		1.0
//	@description	Development stand-in for the zmooth billing backend's auth endpoints.
//	@BasePath		/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main
