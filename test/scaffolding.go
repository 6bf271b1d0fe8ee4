// Package test holds scaffolding shared by the package tests.
package test

import (
	"go.uber.org/mock/gomock"
	"weibo_relay/logic"
	"weibo_relay/test/mocks"
)

func StubLogger(mockLogger *mocks.MockILogger) {
	mockLogger.EXPECT().Error(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Errorf(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warnf(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Infof(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Debugf(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Printf(gomock.Any(), gomock.Any()).AnyTimes()
}

type nopObserver struct{}

func (nopObserver) Finish() {}

func StubMetrics(mockMetrics *mocks.MockIMetrics) {
	mockMetrics.EXPECT().StartEdgeRequestIn(gomock.Any()).Return(nopObserver{}).AnyTimes()
	mockMetrics.EXPECT().StartUpstreamRequestOut(gomock.Any()).Return(nopObserver{}).AnyTimes()
	mockMetrics.EXPECT().UpstreamStatus(gomock.Any(), gomock.Any()).AnyTimes()
	mockMetrics.EXPECT().ImageBytesRelayed(gomock.Any()).AnyTimes()
	mockMetrics.EXPECT().ServiceStarted().AnyTimes()
}

var _ logic.IRequestObserver = nopObserver{}
