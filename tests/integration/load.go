package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	baseURL        = "http://localhost:8080"
	numAccounts    = 100        // Number of accounts to create
	numOperations  = 10000      // Total number of ledger operations
	maxConcurrency = 200        // Maximum number of concurrent requests
	initialBalance = 10000.0    // Initial balance for each account
	maxAmount      = 1000.0     // Maximum operation amount
	successColor   = "\033[32m" // Green
	errorColor     = "\033[31m" // Red
	infoColor      = "\033[34m" // Blue
	resetColor     = "\033[0m"  // Reset color
)

type Account struct {
	ID      string          `json:"id"`
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}

type BalanceResponse struct {
	Message    string          `json:"message"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type TotalBalanceResponse struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
}

type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

func main() {
	rand.Seed(time.Now().UnixNano())

	fmt.Printf("%sstarting a heavy load test with %d accounts and %d operations%s\n",
		infoColor, numAccounts, numOperations, resetColor)

	// Create accounts
	accounts := createAccounts(numAccounts)
	fmt.Printf("%sCreated %d accounts%s\n", successColor, len(accounts), resetColor)

	// Create semaphore for limiting concurrency
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	// Track performance
	startTime := time.Now()
	successCount := 0
	errorCount := 0
	var successMutex sync.Mutex

	fmt.Printf("%slaunching %d operations with max concurrency of %d%s\n",
		infoColor, numOperations, maxConcurrency, resetColor)

	for i := 0; i < numOperations; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(opNum int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			// Random amount between 1 and maxAmount, 2 decimal places
			amount := 1.0 + rand.Float64()*(maxAmount-1.0)
			amount = float64(int(amount*100)) / 100

			var op string
			var err error
			switch rand.Intn(3) {
			case 0:
				op = "deposit"
				account := accounts[rand.Intn(len(accounts))]
				err = moveBalance(account.ID, "deposit", amount)
			case 1:
				op = "withdraw"
				account := accounts[rand.Intn(len(accounts))]
				err = moveBalance(account.ID, "withdraw", amount)
			default:
				op = "transfer"
				from := accounts[rand.Intn(len(accounts))]
				to := accounts[rand.Intn(len(accounts))]
				err = transfer(from.ID, to.ID, amount)
			}

			successMutex.Lock()
			if err != nil {
				errorCount++
				if opNum%100 == 0 { // Only log some failures to avoid overwhelming output
					fmt.Printf("%sOperation failed: %v%s\n", errorColor, err, resetColor)
				}
			} else {
				successCount++
				if opNum%500 == 0 { // Log every 500th successful operation
					fmt.Printf("%sOperation %d: %s of %.2f succeeded%s\n",
						successColor, opNum, op, amount, resetColor)
				}
			}
			successMutex.Unlock()
		}(i)
	}

	// Wait for all operations to complete
	wg.Wait()
	duration := time.Since(startTime)

	fmt.Printf("\n%s=== heavy load Test Results ===%s\n", infoColor, resetColor)
	fmt.Printf("Total number of operations: %d\n", numOperations)
	fmt.Printf("Successful: %s%d (%.1f%%)%s\n",
		successColor, successCount, float64(successCount)/float64(numOperations)*100, resetColor)
	fmt.Printf("Failed: %s%d (%.1f%%)%s\n",
		errorColor, errorCount, float64(errorCount)/float64(numOperations)*100, resetColor)
	fmt.Printf("Duration: %.2f seconds\n", duration.Seconds())
	fmt.Printf("Throughput: %.2f operations/second\n", float64(numOperations)/duration.Seconds())

	// Check final balances
	fmt.Printf("\n%sChecking final account balances...%s\n", infoColor, resetColor)
	checkAccountsAndTransactions(accounts)
}

// createAccounts creates the specified number of accounts
func createAccounts(count int) []Account {
	accounts := make([]Account, 0, count)
	types := []string{"checking", "savings"}

	for i := 0; i < count; i++ {
		reqBody := map[string]interface{}{
			"owner":         fmt.Sprintf("loadtest-%d", i),
			"balance":       initialBalance,
			"account_type":  types[i%len(types)],
			"interest_rate": 1.5,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			fmt.Printf("%sFailed to marshal JSON: %v%s\n", errorColor, err, resetColor)
			continue
		}

		resp, err := http.Post(baseURL+"/accounts", "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			fmt.Printf("%sFailed to create account: %v%s\n", errorColor, err, resetColor)
			continue
		}

		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("%sFailed to create account, status: %d, body: %s%s\n",
				errorColor, resp.StatusCode, string(body), resetColor)
			resp.Body.Close()
			continue
		}

		var account Account
		if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
			fmt.Printf("%sFailed to decode response: %v%s\n", errorColor, err, resetColor)
			resp.Body.Close()
			continue
		}
		resp.Body.Close()

		accounts = append(accounts, account)
		if i%10 == 0 || i == count-1 {
			fmt.Printf("%screated account %d/%d: %s with balance %s%s\n",
				successColor, i+1, count, account.ID, account.Balance, resetColor)
		}
	}

	return accounts
}

// moveBalance posts a deposit or withdrawal for the account
func moveBalance(accountID, op string, amount float64) error {
	jsonData, err := json.Marshal(map[string]float64{"amount": amount})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}

	resp, err := http.Post(
		fmt.Sprintf("%s/accounts/%s/%s", baseURL, accountID, op),
		"application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to post %s: %v", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed, status: %d, body: %s", op, resp.StatusCode, string(body))
	}

	var balance BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// transfer moves amount between two accounts
func transfer(fromID, toID string, amount float64) error {
	jsonData, err := json.Marshal(map[string]interface{}{
		"from_account_id": fromID,
		"to_account_id":   toID,
		"amount":          amount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}

	resp, err := http.Post(baseURL+"/transfer", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to post transfer: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("transfer failed, status: %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// getStatement retrieves the current account statement
func getStatement(accountID string) (*Account, error) {
	resp, err := http.Get(fmt.Sprintf("%s/accounts/%s/statement", baseURL, accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to get statement: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get statement, status: %d, body: %s", resp.StatusCode, string(body))
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	return &account, nil
}

// getTransactions retrieves transaction history for an account
func getTransactions(accountID string) ([]Transaction, error) {
	resp, err := http.Get(fmt.Sprintf("%s/accounts/%s/transactions", baseURL, accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %v", err)
	}
	defer resp.Body.Close()

	// an account the load never touched has no history
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get transactions, status: %d, body: %s", resp.StatusCode, string(body))
	}

	var transactions []Transaction
	if err := json.NewDecoder(resp.Body).Decode(&transactions); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	return transactions, nil
}

// checkAccountsAndTransactions verifies that each sampled account's entries
// sum to its balance delta, then checks the system-wide total
func checkAccountsAndTransactions(accounts []Account) {
	sampleSize := min(10, len(accounts)) // Check up to 10 accounts

	for i := 0; i < sampleSize; i++ {
		original := accounts[rand.Intn(len(accounts))]

		account, err := getStatement(original.ID)
		if err != nil {
			fmt.Printf("%sError retrieving account %s: %v%s\n",
				errorColor, original.ID, err, resetColor)
			continue
		}

		transactions, err := getTransactions(original.ID)
		if err != nil {
			fmt.Printf("%sError retrieving transactions for account %s: %v%s\n",
				errorColor, original.ID, err, resetColor)
			continue
		}

		depositCount := 0
		withdrawalCount := 0
		sum := decimal.Zero
		for _, tx := range transactions {
			sum = sum.Add(tx.Amount)
			if tx.Amount.IsNegative() {
				withdrawalCount++
			} else {
				depositCount++
			}
		}

		expected := original.Balance.Add(sum)
		verdict := successColor + "OK" + resetColor
		if !expected.Equal(account.Balance) {
			verdict = errorColor + "MISMATCH" + resetColor
		}

		fmt.Printf("%sAccount %d: %s%s\n", infoColor, i+1, original.ID, resetColor)
		fmt.Printf("  Original balance: %s, Current balance: %s\n", original.Balance, account.Balance)
		fmt.Printf("  Entries: %d total (%d credits, %d debits), sum %s\n",
			len(transactions), depositCount, withdrawalCount, sum)
		fmt.Printf("  Balance reconciles with history: %s\n", verdict)
	}

	resp, err := http.Get(baseURL + "/total_balance")
	if err != nil {
		fmt.Printf("%sError retrieving total balance: %v%s\n", errorColor, err, resetColor)
		return
	}
	defer resp.Body.Close()

	var total TotalBalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&total); err != nil {
		fmt.Printf("%sError decoding total balance: %v%s\n", errorColor, err, resetColor)
		return
	}
	fmt.Printf("\n%sSystem-wide total balance: %s%s\n", infoColor, total.TotalBalance, resetColor)
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
