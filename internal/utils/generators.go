package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

func GenerateBookingID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("bkg_%d_%06d", timestamp, randomNum.Int64())
}

func GeneratePayoutID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999999))
	return fmt.Sprintf("pot_%d_%09d", timestamp, randomNum.Int64())
}

func GenerateQueueEntryID() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("que_%d_%06d", timestamp, randomNum.Int64())
}
