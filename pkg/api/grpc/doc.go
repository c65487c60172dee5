// Package grpc exposes the standard gRPC health service of the supervisor.
package grpc
