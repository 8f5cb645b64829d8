// Package address finds the blockchain accounts a free-form question refers
// to. Tokens carrying a "0x" prefix are taken as addresses and first-person
// words resolve to the configured default account.
package address
