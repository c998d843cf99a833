// Package otel binds engine metrics to OpenTelemetry.
//
// [NewOTelExporter] creates an Int64ObservableCounter per engine counter and,
// for the password hashing histogram, one Int64ObservableGauge per
// cumulative bucket plus a count gauge. Callers own the MeterProvider.
package otel
