// Package docs provides generated OpenAPI documentation.
//
// Blocklens API
//
//	@title			Blocklens API
//	@version		1.0
//	@description	Block consolidation and coverage API for comparing document extraction engines.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/blocklens/blocklens
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/blocklens/serve.go -o ./swagger --parseDependency --parseInternal
