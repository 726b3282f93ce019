package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logger, err := composables.UseLogger(ctx)
	if err != nil {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}

func logOutcome(ctx context.Context, op string, tenantID uuid.UUID, err error, extra logrus.Fields) {
	fields := logrus.Fields{
		"op":        op,
		"tenant_id": tenantID.String(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err == nil {
		logWithFields(ctx, logrus.InfoLevel, "department."+op+".ok", fields)
		return
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		fields["error_code"] = svcErr.Code
		if svcErr.Field != "" {
			fields["field"] = svcErr.Field
			fields["value"] = svcErr.Value
		}
	}
	level := logrus.ErrorLevel
	if IsValidation(err) || IsNotFound(err) {
		level = logrus.WarnLevel
	}
	fields["error"] = err.Error()
	logWithFields(ctx, level, "department."+op+".rejected", fields)
}
