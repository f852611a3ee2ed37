package provider

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/mock_provider_client.go github.com/trackarr/trackarr/pkg/provider Client
