package main

import "github.com/tivity-app/tivity-api/cmd"

//	@title			Tivity API
//	@version		1.0.0
//	@description	User registration, authentication and profile management for Tivity.
//	@BasePath		/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token prefixed with "Bearer ".

func main() {
	cmd.Execute()
}
