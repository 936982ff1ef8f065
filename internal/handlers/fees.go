package handlers

import (
	"net/http"
	"strconv"

	"divisionone/internal/programs/feehook"

	"github.com/gin-gonic/gin"
)

// QuoteFees returns the fees charged on top of a transfer of amount
// base units.
func (h *Handler) QuoteFees(c *gin.Context) {
	amountStr := c.Query("amount")
	if amountStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	fees, err := feehook.ComputeFees(amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, FeeQuoteResp{
		Amount:         amount,
		OpsFee:         fees.Ops,
		BurnFee:        fees.Burn,
		InstitutionFee: fees.Institution,
		TotalFee:       fees.Total(),
		SenderDebit:    fees.SenderDebit(amount),
		MaxSendable:    feehook.MaxSendable(amount),
	})
}
