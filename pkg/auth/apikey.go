package auth

import "golang.org/x/crypto/bcrypt"

// HashAPIKey 使用 bcrypt 生成 API Key 哈希，配置中只保存哈希。
func HashAPIKey(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey 对比明文 Key 与哈希是否匹配。
func VerifyAPIKey(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
