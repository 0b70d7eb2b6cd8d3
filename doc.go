// Package main is the entry point of GoStorefront-Admin, the back office of
// the storefront. It serves a JSON API with fiber in which every admin route
// is guarded by exactly one permission of a static catalog. Staff hold a
// single role, and the permission set of a role is read from the database on
// every request, so changes apply immediately. Data is kept with gorm.
package main
