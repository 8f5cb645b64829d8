// Package web3 provides read-only access to blockchain account state. Each
// chain implementation maps what it can read (Aptos resources, EVM balances
// and nonces) onto the shared resource records, and the provider registry
// builds clients from configs/chains.yaml.
package web3
