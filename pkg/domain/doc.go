// Package domain holds the core calibration types shared by every layer:
// entities (transmons and couplers), optional parameter values, and the
// calibration and data statuses derived from the parameter store.
package domain
