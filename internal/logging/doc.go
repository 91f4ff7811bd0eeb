// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the logrus logger shared by all components.
//
// # Usage
//
//	log, err := logging.Setup(cfg.Log, verbose)
//	if err != nil {
//	    return err
//	}
//	defer log.Shutdown()
package logging
