package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firmachain/nft-event-server/internal/event"
)

// envelope is the fixed response shape every event route answers with.
// Clients switch on code: 0 is success, -1 is any rejection.
type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

func success(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, envelope{Code: 0, Message: "SUCCESS", Result: result})
}

func invalid(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{Code: -1, Message: "INVALID KEY"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getRequest(c *gin.Context) {
	req, err := s.engine.Status(c.Request.Context(), c.Param("requestKey"))
	if err != nil {
		s.log.WithError(err).Error("read request status")
		invalid(c)
		return
	}
	success(c, req)
}

func (s *Server) getUser(c *gin.Context) {
	info, err := s.engine.UserInfo(c.Request.Context(), c.Param("signer"))
	if err != nil {
		s.log.WithError(err).Error("read user info")
		invalid(c)
		return
	}
	success(c, info)
}

func (s *Server) postSignLogin(c *gin.Context) {
	resp, err := s.engine.SignForLogin(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("start login flow")
		invalid(c)
		return
	}
	success(c, resp)
}

type signPlayRequest struct {
	Signer  string `json:"signer" binding:"required"`
	NftType string `json:"nftType" binding:"required"`
}

func (s *Server) postSignPlay(c *gin.Context) {
	var body signPlayRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c)
		return
	}

	resp, err := s.engine.SignForPlay(c.Request.Context(), body.Signer, body.NftType)
	if err != nil {
		s.log.WithError(err).
			WithField("signer", body.Signer).
			WithField("nft_type", body.NftType).
			Warn("play flow rejected")
		invalid(c)
		return
	}
	success(c, resp)
}

type signRewardRequest struct {
	Signer string `json:"signer" binding:"required"`
}

func (s *Server) postSignReward(c *gin.Context) {
	var body signRewardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c)
		return
	}

	resp, err := s.engine.SignForReward(c.Request.Context(), body.Signer)
	if err != nil {
		s.log.WithError(err).Error("start reward flow")
		invalid(c)
		return
	}
	success(c, resp)
}

type callbackRequest struct {
	RequestKey string         `json:"requestKey" binding:"required"`
	Approve    bool           `json:"approve"`
	SignData   event.SignData `json:"signData"`
}

func (s *Server) postCallback(c *gin.Context) {
	var body callbackRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c)
		return
	}

	if err := s.engine.Callback(c.Request.Context(), body.RequestKey, body.Approve, body.SignData); err != nil {
		s.log.WithError(err).WithField("request_key", body.RequestKey).Error("handle callback")
		invalid(c)
		return
	}
	success(c, nil)
}

type verifyRequest struct {
	RequestKey string `json:"requestKey" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

func (s *Server) postVerify(c *gin.Context) {
	var body verifyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c)
		return
	}

	result, err := s.engine.Verify(c.Request.Context(), body.RequestKey, body.Signature)
	if err != nil {
		s.log.WithError(err).WithField("request_key", body.RequestKey).Error("verify signature")
		invalid(c)
		return
	}
	success(c, result)
}

func (s *Server) getNftList(c *gin.Context) {
	list, err := s.engine.NftListInfo(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("read nft list")
		invalid(c)
		return
	}
	success(c, list)
}

func (s *Server) getNftMetadata(c *gin.Context) {
	meta, err := s.engine.NftMetadataInfo(c.Request.Context(), c.Param("nftId"))
	if err != nil {
		invalid(c)
		return
	}
	success(c, meta)
}
