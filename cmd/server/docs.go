// Package main runs the favorite products service.
//
// @title Favorite Products API
// @version 1.0
// @description Favorite-products service backed by a local cache of an external product catalog.
//
// @contact.name API Support
//
// @host localhost:8080
// @BasePath /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.
package main
