package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           frequency API
// @version         1.0
// @description     HTTP API for loading models and LoRA adapters and chatting with them.
//
// @contact.name   frequency maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
